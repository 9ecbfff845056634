package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Config Errors (E100-E109)
	// ============================================

	"E100": {
		Category: CategoryConfig,
		Message:  "Invalid wu.config.json",
		Detail:   "The configuration file exists but could not be parsed as JSON.",
	},
	"E101": {
		Category: CategoryConfig,
		Message:  "Invalid port",
		Detail:   "Ports must be between 0 and 65535.",
	},
	"E102": {
		Category: CategoryConfig,
		Message:  "No apps found",
		Detail:   "No wu.config.json was found and auto-discovery located no app directories.",
	},

	// ============================================
	// Server Errors (E110-E119)
	// ============================================

	"E110": {
		Category: CategoryHTTP,
		Message:  "Failed to bind listener",
		Detail:   "The dev server could not bind its TCP listener. The port may be in use.",
	},

	// ============================================
	// Compile Errors (E120-E129)
	// ============================================

	"E120": {
		Category: CategoryCompile,
		Message:  "Compiler host not found",
		Detail:   "No node executable was found to host the compilation daemon.",
	},
	"E121": {
		Category: CategoryCompile,
		Message:  "Compilation failed",
		Detail:   "The compiler reported an error for this file.",
	},
	"E122": {
		Category: CategoryCompile,
		Message:  "Compiler daemon failed to start",
		Detail:   "The long-running compiler process could not be spawned.",
	},
	"E123": {
		Category: CategoryCompile,
		Message:  "Path too long",
		Detail:   "The source path exceeds the length the compiler protocol accepts.",
	},

	// ============================================
	// Resolve Errors (E130-E139)
	// ============================================

	"E130": {
		Category: CategoryResolve,
		Message:  "Package not found",
		Detail:   "The bare specifier did not resolve to a package.json in any search directory.",
	},
	"E131": {
		Category: CategoryResolve,
		Message:  "Entry point not found",
		Detail:   "The package was found but none of its declared entry points exist on disk.",
	},

	// ============================================
	// Watch Errors (E140-E149)
	// ============================================

	"E140": {
		Category: CategoryWatch,
		Message:  "Watch root missing",
		Detail:   "A watched app directory does not exist.",
	},
}

// Lookup returns the template for a code, if registered.
func Lookup(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
