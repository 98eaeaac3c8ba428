package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/hamed0406/httpwatchdog/internal/domain"
)

// ErrInvalidConfig wraps every problem found in the requirement file or the
// command-line values.
var ErrInvalidConfig = errors.New("invalid configuration")

const (
	DefaultProbeInterval = 300 * time.Second
	DefaultPort          = 80
	DefaultTimeout       = 30 * time.Second
)

// Settings is the validated, merged configuration of one run.
type Settings struct {
	Pages         []domain.ResourceSpec
	ProbeInterval time.Duration
	Port          int
	Timeout       time.Duration
	Warnings      []string
}

// Overrides carries command-line values. Nil fields were not given and fall
// back to the file, then to the defaults.
type Overrides struct {
	ProbeInterval *time.Duration
	Port          *int
	Timeout       *time.Duration

	// FallbackTimeout replaces DefaultTimeout when positive.
	FallbackTimeout time.Duration
}

// Duration accepts a bare number of seconds or a Go duration string.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected seconds or a duration, got %s", node.Line, node.ShortTag())
	}
	if n, err := strconv.ParseInt(node.Value, 10, 64); err == nil {
		*d = Duration(time.Duration(n) * time.Second)
		return nil
	}
	parsed, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: invalid duration %q", node.Line, node.Value)
	}
	*d = Duration(parsed)
	return nil
}

type pageFile struct {
	URL      *string   `yaml:"url"`
	Patterns *[]string `yaml:"patterns"`
}

type requirementFile struct {
	ProbeInterval *Duration   `yaml:"probe-interval"`
	Port          *int        `yaml:"port"`
	Timeout       *Duration   `yaml:"timeout"`
	Pages         *[]pageFile `yaml:"pages"`
}

// LoadRequirements reads the requirement file at path and merges it with
// the command-line overrides.
func LoadRequirements(path string, ov Overrides) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read requirement file: %w", ErrInvalidConfig, err)
	}
	return ParseRequirements(data, ov)
}

// ParseRequirements validates everything it can and reports all problems at
// once.
func ParseRequirements(data []byte, ov Overrides) (*Settings, error) {
	var f requirementFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: parse requirement file: %w", ErrInvalidConfig, err)
	}

	var errs error
	s := &Settings{}

	switch {
	case f.Pages == nil:
		errs = multierr.Append(errs, errors.New("'pages' key missing from requirement file"))
	case len(*f.Pages) == 0:
		errs = multierr.Append(errs, errors.New("no page configurations specified"))
	default:
		for i, p := range *f.Pages {
			spec, warn, err := buildPage(i, p)
			if err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			if warn != "" {
				s.Warnings = append(s.Warnings, warn)
			}
			s.Pages = append(s.Pages, spec)
		}
	}

	s.ProbeInterval = DefaultProbeInterval
	if ov.ProbeInterval != nil {
		s.ProbeInterval = *ov.ProbeInterval
	} else if f.ProbeInterval != nil {
		s.ProbeInterval = time.Duration(*f.ProbeInterval)
	}
	if s.ProbeInterval < 0 {
		errs = multierr.Append(errs, fmt.Errorf("'probe-interval' must be non-negative, got %s", s.ProbeInterval))
	}

	s.Port = DefaultPort
	if ov.Port != nil {
		s.Port = *ov.Port
	} else if f.Port != nil {
		s.Port = *f.Port
	}
	if s.Port < 1 || s.Port > 65535 {
		errs = multierr.Append(errs, fmt.Errorf("'port' must be in range 1..65535, got %d", s.Port))
	}

	s.Timeout = DefaultTimeout
	if ov.FallbackTimeout > 0 {
		s.Timeout = ov.FallbackTimeout
	}
	if ov.Timeout != nil {
		s.Timeout = *ov.Timeout
	} else if f.Timeout != nil {
		s.Timeout = time.Duration(*f.Timeout)
	}
	if s.Timeout <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("'timeout' must be positive, got %s", s.Timeout))
	}

	if errs != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, errs)
	}
	return s, nil
}

func buildPage(i int, p pageFile) (domain.ResourceSpec, string, error) {
	var errs error
	if p.URL == nil {
		errs = multierr.Append(errs, fmt.Errorf("pages[%d]: missing 'url' key", i))
	}
	if p.Patterns == nil {
		errs = multierr.Append(errs, fmt.Errorf("pages[%d]: missing 'patterns' key", i))
	}
	if errs != nil {
		return domain.ResourceSpec{}, "", errs
	}

	raw := *p.URL
	if err := checkURL(raw); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("pages[%d]: %w", i, err))
	}

	spec := domain.ResourceSpec{URL: raw}
	for j, src := range *p.Patterns {
		re, err := regexp.Compile(src)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("pages[%d].patterns[%d]: %w", i, j, err))
			continue
		}
		spec.Patterns = append(spec.Patterns, re)
	}
	if errs != nil {
		return domain.ResourceSpec{}, "", errs
	}

	var warn string
	if len(spec.Patterns) == 0 {
		warn = fmt.Sprintf("no patterns specified for url %s", raw)
	}
	return spec, warn, nil
}

func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported protocol %q in url %q", u.Scheme, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("url %q has no host", raw)
	}
	if u.User != nil {
		return fmt.Errorf("url %q contains username and/or password; HTTP authentication is not supported", raw)
	}
	return nil
}
