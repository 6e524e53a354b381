package campaign

import (
	"bytes"
	_ "embed"
	"fmt"
	"math/rand"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var defaultCatalogYAML []byte

// Vars are the fields a template may reference.
type Vars struct {
	Greeting string
	Company  string
	Domain   string
	Issues   string
	Sender   string
}

// Rendered is one message produced from a template.
type Rendered struct {
	Template string
	Subject  string
	Body     string
}

// Template is one named message with interchangeable subject and body variants.
type Template struct {
	Name string
	// Greeting is used when no first name is known.
	Greeting string

	subjects []*template.Template
	bodies   []*template.Template
}

// Catalog is the full set of outreach templates.
type Catalog struct {
	Fresh     []*Template
	Followup1 *Template
	Followup2 *Template
}

type templateSpec struct {
	Name     string   `yaml:"name"`
	Greeting string   `yaml:"greeting"`
	Subjects []string `yaml:"subjects"`
	Bodies   []string `yaml:"bodies"`
}

type catalogSpec struct {
	Fresh     []templateSpec `yaml:"fresh"`
	Followup1 templateSpec   `yaml:"followup_1"`
	Followup2 templateSpec   `yaml:"followup_2"`
}

// DefaultCatalog parses the built-in catalog.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalogYAML)
}

// ParseCatalog parses a YAML catalog. Every template needs at least one
// subject and one body, and the catalog at least one fresh template.
func ParseCatalog(data []byte) (*Catalog, error) {
	var doc catalogSpec
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing template catalog: %w", err)
	}
	if len(doc.Fresh) == 0 {
		return nil, fmt.Errorf("template catalog has no fresh templates")
	}

	cat := &Catalog{}
	for _, s := range doc.Fresh {
		t, err := compile(s)
		if err != nil {
			return nil, err
		}
		cat.Fresh = append(cat.Fresh, t)
	}
	var err error
	if cat.Followup1, err = compile(doc.Followup1); err != nil {
		return nil, err
	}
	if cat.Followup2, err = compile(doc.Followup2); err != nil {
		return nil, err
	}
	return cat, nil
}

func compile(s templateSpec) (*Template, error) {
	if s.Name == "" {
		return nil, fmt.Errorf("template without a name")
	}
	if len(s.Subjects) == 0 || len(s.Bodies) == 0 {
		return nil, fmt.Errorf("template %s: needs at least one subject and one body", s.Name)
	}
	t := &Template{Name: s.Name, Greeting: s.Greeting}
	if t.Greeting == "" {
		t.Greeting = "Hi"
	}
	for i, src := range s.Subjects {
		tt, err := template.New(fmt.Sprintf("%s.subject.%d", s.Name, i)).Option("missingkey=error").Parse(src)
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", s.Name, err)
		}
		t.subjects = append(t.subjects, tt)
	}
	for i, src := range s.Bodies {
		tt, err := template.New(fmt.Sprintf("%s.body.%d", s.Name, i)).Option("missingkey=error").Parse(src)
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", s.Name, err)
		}
		t.bodies = append(t.bodies, tt)
	}
	return t, nil
}

// Greet returns "Hi <name>" for a known first name, or the template's
// fallback greeting.
func (t *Template) Greet(firstName string) string {
	if firstName == "" {
		return t.Greeting
	}
	return "Hi " + firstName
}

// Render picks one subject and one body variant with rng.
func (t *Template) Render(v Vars, rng *rand.Rand) (Rendered, error) {
	subject, err := execute(t.subjects[rng.Intn(len(t.subjects))], v)
	if err != nil {
		return Rendered{}, err
	}
	body, err := execute(t.bodies[rng.Intn(len(t.bodies))], v)
	if err != nil {
		return Rendered{}, err
	}
	return Rendered{Template: t.Name, Subject: subject, Body: body}, nil
}

// Variants renders every subject and every body.
func (t *Template) Variants(v Vars) (subjects, bodies []string, err error) {
	for _, tt := range t.subjects {
		s, err := execute(tt, v)
		if err != nil {
			return nil, nil, err
		}
		subjects = append(subjects, s)
	}
	for _, tt := range t.bodies {
		b, err := execute(tt, v)
		if err != nil {
			return nil, nil, err
		}
		bodies = append(bodies, b)
	}
	return subjects, bodies, nil
}

// All returns the fresh templates followed by the two follow-ups.
func (c *Catalog) All() []*Template {
	out := append([]*Template(nil), c.Fresh...)
	return append(out, c.Followup1, c.Followup2)
}

func execute(t *template.Template, v Vars) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, v); err != nil {
		return "", fmt.Errorf("rendering %s: %w", t.Name(), err)
	}
	return strings.TrimSpace(buf.String()), nil
}
