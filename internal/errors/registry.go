package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Detail     string
	Suggestion string
}

// Registered codes.
const (
	CodeNetworkFailure  = "A101"
	CodeInvalidResponse = "A102"
	CodeStaleResponse   = "A103"
	CodeFetchTimeout    = "A104"
	CodeConfigParse     = "A120"
	CodeConfigInvalid   = "A121"
	CodeConfigNotFound  = "A122"
	CodeCLIUsage        = "A140"
)

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Listing endpoint (A100-A119)
	// ============================================

	CodeNetworkFailure: {
		Category:   CategoryNetwork,
		Message:    "Attendee listing unreachable",
		Detail:     "The request to the attendee listing endpoint failed before a response was received.",
		Suggestion: "Check that the API base URL is correct and the server is running",
	},
	CodeInvalidResponse: {
		Category: CategoryResponse,
		Message:  "Invalid attendee listing response",
		Detail:   "The listing endpoint answered with a non-success status or a body that is not a valid attendee page.",
	},
	CodeStaleResponse: {
		Category: CategorySync,
		Message:  "Stale response discarded",
		Detail:   "A response arrived for a search/page combination that is no longer current and was ignored.",
	},
	CodeFetchTimeout: {
		Category:   CategoryNetwork,
		Message:    "Attendee listing timed out",
		Detail:     "The listing endpoint did not answer within the configured timeout.",
		Suggestion: "Raise api.timeout or check the endpoint's health",
	},

	// ============================================
	// Config Errors (A120-A139)
	// ============================================

	CodeConfigParse: {
		Category:   CategoryConfig,
		Message:    "Config parse error",
		Detail:     "The configuration file could not be parsed.",
		Suggestion: "Check that the file is valid YAML",
	},
	CodeConfigInvalid: {
		Category: CategoryConfig,
		Message:  "Invalid config value",
		Detail:   "A configuration value is out of range or malformed.",
	},
	CodeConfigNotFound: {
		Category:   CategoryConfig,
		Message:    "Config file not found",
		Detail:     "The configuration file passed on the command line does not exist.",
		Suggestion: "Omit --config to run with defaults and ATTENDEES_* environment variables",
	},

	// ============================================
	// CLI Errors (A140-A159)
	// ============================================

	CodeCLIUsage: {
		Category: CategoryCLI,
		Message:  "Invalid command usage",
	},
}

// GetAllCodes returns all registered error codes.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
