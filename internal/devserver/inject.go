package devserver

import (
	"bytes"
	_ "embed"
)

// clientJS is the reload-engine bootstrap served at /__hmr/client.js and
// injected into every HTML page.
//
//go:embed client.js
var clientJS []byte

// BootstrapTag is the script element injected into served HTML pages.
const BootstrapTag = `<script type="module" src="/__hmr/client.js"></script>`

// InjectBootstrap inserts the bootstrap script tag before the closing body
// tag. Documents without one get the tag appended so the reload engine still
// loads.
func InjectBootstrap(html []byte) []byte {
	tag := []byte(BootstrapTag + "\n")

	idx := bytes.LastIndex(bytes.ToLower(html), []byte("</body>"))
	if idx < 0 {
		return append(append([]byte{}, html...), tag...)
	}

	out := make([]byte, 0, len(html)+len(tag))
	out = append(out, html[:idx]...)
	out = append(out, tag...)
	out = append(out, html[idx:]...)
	return out
}
