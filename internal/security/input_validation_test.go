package security

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSearchTerm(t *testing.T) {
	v := NewInputValidator(nil)
	ctx := context.Background()

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"empty", "", "", false},
		{"plain", "  two sum ", "two sum", false},
		{"punctuation kept", "Pow(x, n) & friends", "Pow(x, n) & friends", false},
		{"control chars stripped", "dyn\x00amic\x07", "dynamic", false},
		{"script rejected", "<script>alert(1)</script>", "", true},
		{"javascript url rejected", "javascript:alert(1)", "", true},
		{"too long", strings.Repeat("a", 257), "", true},
		{"invalid utf8", "\xff\xfe", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := v.ValidateSearchTerm(ctx, tt.input)
			if tt.wantErr {
				assert.False(t, res.IsValid)
				assert.Error(t, res.Err())
				return
			}
			assert.True(t, res.IsValid)
			assert.NoError(t, res.Err())
			assert.Equal(t, tt.want, res.SanitizedValue)
		})
	}
}

func TestValidateTitle(t *testing.T) {
	v := NewInputValidator(nil)
	ctx := context.Background()

	res := v.ValidateTitle(ctx, " Two Sum ")
	assert.True(t, res.IsValid)
	assert.Equal(t, "Two Sum", res.SanitizedValue)

	res = v.ValidateTitle(ctx, "   ")
	assert.False(t, res.IsValid)
	assert.Contains(t, res.Err().Error(), "title is required")
}

func TestValidateCompanyName(t *testing.T) {
	v := NewInputValidator(nil)
	ctx := context.Background()

	for _, ok := range []string{"Google", "Goldman Sachs", "J.P. Morgan"} {
		assert.True(t, v.ValidateCompanyName(ctx, ok).IsValid, ok)
	}
	for _, bad := range []string{"", "../etc", "a/b", `a\b`, "%2e%2e"} {
		res := v.ValidateCompanyName(ctx, bad)
		assert.False(t, res.IsValid, bad)
	}
	assert.Contains(t, v.ValidateCompanyName(ctx, "../x").ThreatTypes, string(ThreatPathTraversal))
}

func TestValidateEmail(t *testing.T) {
	v := NewInputValidator(nil)
	ctx := context.Background()

	res := v.ValidateEmail(ctx, " Demo@Example.com ")
	assert.True(t, res.IsValid)
	assert.Equal(t, "demo@example.com", res.SanitizedValue)

	for _, bad := range []string{"", "nope", "a@b", strings.Repeat("a", 250) + "@x.com"} {
		assert.False(t, v.ValidateEmail(ctx, bad).IsValid, bad)
	}
}
