// Package config holds file-based configuration for the notification worker.
package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

const (
	DefaultOrganization = "UMI Research Management System"
	DefaultHeaderColor  = "#003366"
)

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Branding controls the organization-specific parts of the email template.
type Branding struct {
	// Organization appears in the footer line.
	Organization string `yaml:"organization"`
	// HeaderColor is the CSS background of the title bar (#RGB or #RRGGBB).
	HeaderColor string `yaml:"header_color"`
	// FooterText replaces the generated footer line when set.
	FooterText string `yaml:"footer_text"`
}

// brandingFile is the on-disk layout:
//
//	branding:
//	  organization: UMI Research Management System
//	  header_color: "#003366"
type brandingFile struct {
	Branding Branding `yaml:"branding"`
}

// DefaultBranding returns the built-in branding.
func DefaultBranding() Branding {
	return Branding{
		Organization: DefaultOrganization,
		HeaderColor:  DefaultHeaderColor,
	}
}

// Footer returns the footer line of the email template.
func (b Branding) Footer() string {
	if b.FooterText != "" {
		return b.FooterText
	}
	return fmt.Sprintf("This is an automated message from the %s.", b.Organization)
}

// LoadBranding reads branding from a YAML file. An empty path returns the
// defaults. Fields missing from the file keep their default values.
// The path parameter is expected to come from a trusted source (TEMPLATE_CONFIG_PATH).
func LoadBranding(path string) (Branding, error) {
	if path == "" {
		return DefaultBranding(), nil
	}

	// #nosec G304 -- path is provided by the operator, not user input
	data, err := os.ReadFile(path)
	if err != nil {
		return Branding{}, fmt.Errorf("failed to read branding file: %w", err)
	}

	file := brandingFile{Branding: DefaultBranding()}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Branding{}, fmt.Errorf("failed to parse branding file: %w", err)
	}

	if err := file.Branding.Validate(); err != nil {
		return Branding{}, fmt.Errorf("branding validation failed: %w", err)
	}
	return file.Branding, nil
}

// Validate checks that the branding renders a well-formed template.
func (b Branding) Validate() error {
	if b.Organization == "" && b.FooterText == "" {
		return fmt.Errorf("organization is required when footer_text is not set")
	}
	if !hexColor.MatchString(b.HeaderColor) {
		return fmt.Errorf("header_color must be a hex color like #003366, got %q", b.HeaderColor)
	}
	return nil
}
