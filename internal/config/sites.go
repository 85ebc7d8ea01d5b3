package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/hamed0406/uptimers/internal/domain"
)

type siteEntry struct {
	Site string `yaml:"site" validate:"required,http_url"`
	Name string `yaml:"name" validate:"required"`
}

type siteFile struct {
	Sites []siteEntry `yaml:"sites" validate:"required,min=1,unique=Site,dive"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// LoadSites reads and validates the site list at path.
func LoadSites(path string) ([]domain.Site, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sites: %w", err)
	}
	sites, err := ParseSites(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sites, nil
}

// ParseSites decodes a YAML site list. Unknown fields are rejected.
func ParseSites(r io.Reader) ([]domain.Site, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f siteFile
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("no sites configured")
		}
		return nil, fmt.Errorf("decode sites: %w", err)
	}
	for i := range f.Sites {
		f.Sites[i].Site = strings.TrimSpace(f.Sites[i].Site)
		f.Sites[i].Name = strings.TrimSpace(f.Sites[i].Name)
	}

	if err := validate.Struct(f); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, err
		}
		var out error
		for _, fe := range verrs {
			out = multierr.Append(out, errors.New(formatValidationError(fe)))
		}
		return nil, out
	}

	sites := make([]domain.Site, 0, len(f.Sites))
	for _, e := range f.Sites {
		sites = append(sites, domain.Site{Site: e.Site, Name: e.Name})
	}
	return sites, nil
}

func formatValidationError(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "siteFile.")
	switch {
	case field == "sites" && (fe.Tag() == "required" || fe.Tag() == "min"):
		return "no sites configured"
	case fe.Tag() == "unique":
		return "sites: duplicate site URL"
	case fe.Tag() == "http_url":
		return fmt.Sprintf("%s: %q is not an absolute http(s) URL", field, fe.Value())
	case fe.Tag() == "required":
		return field + " is required"
	}
	return fmt.Sprintf("%s: failed %q", field, fe.Tag())
}
