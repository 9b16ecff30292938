package errors

import "fmt"

// ConfigNotFound creates a configuration not found error
func ConfigNotFound(path string) *DevError {
	return New(ErrCodeConfigNotFound, fmt.Sprintf("configuration file not found: %s", path)).
		WithDetail("path", path)
}

// ConfigInvalid creates an invalid configuration error
func ConfigInvalid(reason string) *DevError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", reason))
}

// StatFailed creates an error for a changed file whose metadata could not be read.
// The corresponding change event is dropped; the watcher keeps running.
func StatFailed(path string, err error) *DevError {
	return Wrap(err, ErrCodeStatFailed, fmt.Sprintf("failed to stat changed file: %s", path)).
		WithDetail("path", path)
}

// ModuleFetch creates an error for a failed module re-fetch during a hot swap.
func ModuleFetch(module string, err error) *DevError {
	return Wrap(err, ErrCodeModuleFetch, fmt.Sprintf("failed to fetch module: %s", module)).
		WithDetail("module", module)
}

// ModuleExecute creates an error for a module factory that failed during re-execution.
func ModuleExecute(module string, err error) *DevError {
	return Wrap(err, ErrCodeModuleExecute, fmt.Sprintf("module execution failed: %s", module)).
		WithDetail("module", module)
}

// ModuleUnknown creates an error for a hot-update targeting a module with no
// registered factory.
func ModuleUnknown(module string) *DevError {
	return New(ErrCodeModuleUnknown, fmt.Sprintf("no factory registered for module: %s", module)).
		WithDetail("module", module)
}

// InvalidBinding creates an error for a malformed fine-grained binding registration.
func InvalidBinding(reason string) *DevError {
	return New(ErrCodeInvalidBinding, fmt.Sprintf("invalid binding: %s", reason))
}

// InvalidView creates an error for a malformed view registration.
func InvalidView(reason string) *DevError {
	return New(ErrCodeInvalidView, fmt.Sprintf("invalid view registration: %s", reason))
}
