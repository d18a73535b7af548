package security

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// InputValidator sanitizes free-text input before it reaches the pipeline
// or the progress store.
type InputValidator struct {
	logger          *slog.Logger
	maxSearchLength int
	maxTitleLength  int
	maxEmailLength  int
	xssPatterns     []*regexp.Regexp
}

// ValidationConfig holds configuration for input validation
type ValidationConfig struct {
	MaxSearchLength int `json:"max_search_length"`
	MaxTitleLength  int `json:"max_title_length"`
	MaxEmailLength  int `json:"max_email_length"`
}

// ValidationResult represents the result of input validation
type ValidationResult struct {
	IsValid        bool     `json:"is_valid"`
	SanitizedValue string   `json:"sanitized_value"`
	Errors         []string `json:"errors"`
	InputType      string   `json:"input_type"`
	ThreatTypes    []string `json:"threat_types"`
}

// Err returns the first validation error, or nil.
func (r *ValidationResult) Err() error {
	if r.IsValid || len(r.Errors) == 0 {
		return nil
	}
	return fmt.Errorf("invalid %s: %s", r.InputType, r.Errors[0])
}

// ThreatType represents different types of security threats
type ThreatType string

const (
	ThreatXSS            ThreatType = "xss"
	ThreatPathTraversal  ThreatType = "path_traversal"
	ThreatMalformedInput ThreatType = "malformed_input"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// NewInputValidator creates a new input validator
func NewInputValidator(config *ValidationConfig) *InputValidator {
	if config == nil {
		config = DefaultValidationConfig()
	}

	return &InputValidator{
		logger:          slog.Default(),
		maxSearchLength: config.MaxSearchLength,
		maxTitleLength:  config.MaxTitleLength,
		maxEmailLength:  config.MaxEmailLength,
		xssPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)<\s*script[^>]*>`),
			regexp.MustCompile(`(?i)javascript\s*:`),
			regexp.MustCompile(`(?i)on(load|error|click|mouseover)\s*=`),
			regexp.MustCompile(`(?i)<\s*iframe`),
		},
	}
}

// DefaultValidationConfig returns default validation limits
func DefaultValidationConfig() *ValidationConfig {
	return &ValidationConfig{
		MaxSearchLength: 256,
		MaxTitleLength:  512,
		MaxEmailLength:  254, // RFC 5321
	}
}

// SetLogger sets a custom logger for the validator
func (v *InputValidator) SetLogger(logger *slog.Logger) {
	v.logger = logger
}

// ValidateSearchTerm cleans a search term. Empty terms are valid.
func (v *InputValidator) ValidateSearchTerm(ctx context.Context, term string) *ValidationResult {
	result := v.validateText(ctx, "search", term, v.maxSearchLength)
	return result
}

// ValidateTitle cleans a problem title used as a completion key.
func (v *InputValidator) ValidateTitle(ctx context.Context, title string) *ValidationResult {
	result := v.validateText(ctx, "title", title, v.maxTitleLength)
	if result.IsValid && result.SanitizedValue == "" {
		result.Errors = append(result.Errors, "title is required")
		result.IsValid = false
	}
	return result
}

// ValidateCompanyName rejects names that could escape the data directory.
func (v *InputValidator) ValidateCompanyName(ctx context.Context, name string) *ValidationResult {
	result := v.validateText(ctx, "company", name, 128)
	if !result.IsValid {
		return result
	}
	switch {
	case result.SanitizedValue == "":
		result.Errors = append(result.Errors, "company is required")
	case containsPathTraversal(name) || strings.ContainsAny(name, `/\`):
		result.ThreatTypes = append(result.ThreatTypes, string(ThreatPathTraversal))
		result.Errors = append(result.Errors, "company must not contain path separators")
		v.logSuspiciousInput(ctx, result.InputType, name, result)
	}
	result.IsValid = len(result.Errors) == 0
	return result
}

// ValidateEmail validates and normalizes an email address.
func (v *InputValidator) ValidateEmail(ctx context.Context, email string) *ValidationResult {
	result := &ValidationResult{InputType: "email"}

	sanitized := strings.ToLower(strings.TrimSpace(email))
	result.SanitizedValue = sanitized

	switch {
	case sanitized == "":
		result.Errors = append(result.Errors, "email is required")
	case len(sanitized) > v.maxEmailLength:
		result.Errors = append(result.Errors, fmt.Sprintf("email exceeds maximum length of %d characters", v.maxEmailLength))
	case !emailRegex.MatchString(sanitized):
		result.Errors = append(result.Errors, "invalid email format")
	}

	result.IsValid = len(result.Errors) == 0
	return result
}

// validateText trims, strips control characters and rejects markup.
// Content is otherwise preserved: titles legitimately contain quotes,
// ampersands and parentheses.
func (v *InputValidator) validateText(ctx context.Context, inputType, input string, maxLength int) *ValidationResult {
	result := &ValidationResult{InputType: inputType}

	if !utf8.ValidString(input) {
		result.ThreatTypes = append(result.ThreatTypes, string(ThreatMalformedInput))
		result.Errors = append(result.Errors, "input is not valid UTF-8")
		return result
	}

	if utf8.RuneCountInString(input) > maxLength {
		result.Errors = append(result.Errors, fmt.Sprintf("input exceeds maximum length of %d characters", maxLength))
		return result
	}

	result.SanitizedValue = strings.TrimSpace(removeControlCharacters(input))

	if v.containsXSS(input) {
		result.ThreatTypes = append(result.ThreatTypes, string(ThreatXSS))
		result.Errors = append(result.Errors, "input contains markup")
		v.logSuspiciousInput(ctx, inputType, input, result)
	}

	result.IsValid = len(result.Errors) == 0
	return result
}

// removeControlCharacters removes null bytes and control characters
func removeControlCharacters(input string) string {
	var b strings.Builder
	for _, r := range input {
		if unicode.IsPrint(r) || r == ' ' || r == '\t' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (v *InputValidator) containsXSS(input string) bool {
	for _, pattern := range v.xssPatterns {
		if pattern.MatchString(input) {
			return true
		}
	}
	return false
}

// containsPathTraversal checks for path traversal patterns
func containsPathTraversal(input string) bool {
	patterns := []string{
		"..", "%2e%2e", "%2f", "%5c",
	}

	lower := strings.ToLower(input)
	for _, pattern := range patterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

func (v *InputValidator) logSuspiciousInput(ctx context.Context, inputType, original string, result *ValidationResult) {
	if len(original) > 64 {
		original = original[:64] + "..."
	}
	v.logger.WarnContext(ctx, "suspicious input rejected",
		slog.String("input_type", inputType),
		slog.String("input", original),
		slog.Any("threats", result.ThreatTypes),
	)
}
