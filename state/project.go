package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// BackendLocal is reported when a project declares no backend.
const BackendLocal = "local"

var (
	terraformSchema = &hcl.BodySchema{
		Blocks: []hcl.BlockHeaderSchema{
			{Type: "terraform"},
		},
	}
	backendSchema = &hcl.BodySchema{
		Blocks: []hcl.BlockHeaderSchema{
			{Type: "backend", LabelNames: []string{"type"}},
			{Type: "cloud"},
		},
	}
)

// isTerraformFile reports whether name is a Terraform configuration file.
func isTerraformFile(name string) bool {
	return strings.HasSuffix(name, ".tf") || strings.HasSuffix(name, ".tf.json")
}

// isProject reports whether dir directly contains Terraform configuration.
func isProject(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if !e.IsDir() && isTerraformFile(e.Name()) {
			return true, nil
		}
	}
	return false, nil
}

// DetectBackend returns the state backend declared by the configuration in
// dir, or BackendLocal when there is none. Files that fail to parse are
// reported in the error but do not stop the search.
func DetectBackend(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return BackendLocal, fmt.Errorf("read project %s: %w", dir, err)
	}

	parser := hclparse.NewParser()
	var errs []error

	for _, e := range entries {
		if e.IsDir() || !isTerraformFile(e.Name()) {
			continue
		}

		path := filepath.Join(dir, e.Name())
		src, err := os.ReadFile(path) // #nosec G304 -- path comes from walking the project tree
		if err != nil {
			errs = append(errs, fmt.Errorf("read %s: %w", path, err))
			continue
		}

		var file *hcl.File
		var diags hcl.Diagnostics
		if strings.HasSuffix(path, ".tf.json") {
			file, diags = parser.ParseJSON(src, path)
		} else {
			file, diags = parser.ParseHCL(src, path)
		}
		if diags.HasErrors() {
			errs = append(errs, fmt.Errorf("parse %s: %s", path, diags.Error()))
			if file == nil {
				continue
			}
		}

		if backend, ok := backendFromBody(file.Body); ok {
			return backend, errors.Join(errs...)
		}
	}

	return BackendLocal, errors.Join(errs...)
}

func backendFromBody(body hcl.Body) (string, bool) {
	content, _, _ := body.PartialContent(terraformSchema)
	if content == nil {
		return "", false
	}

	for _, block := range content.Blocks {
		inner, _, _ := block.Body.PartialContent(backendSchema)
		if inner == nil {
			continue
		}
		for _, b := range inner.Blocks {
			switch b.Type {
			case "backend":
				if len(b.Labels) > 0 {
					return b.Labels[0], true
				}
			case "cloud":
				return "cloud", true
			}
		}
	}

	return "", false
}
