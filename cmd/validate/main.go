package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Mihir369/legal-arena-ai/pkg/script"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <script.yaml|script.json>...\n", os.Args[0])
		os.Exit(1)
	}

	failed := 0
	for _, filename := range os.Args[1:] {
		validator := &ScriptValidator{out: os.Stdout}
		if err := validator.validateFile(filename); err != nil {
			fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
			failed++
		}
	}
	if failed > 0 {
		os.Exit(1)
	}

	fmt.Println("Script files are valid!")
}

type ScriptValidator struct {
	out    io.Writer
	errors []string
}

func (v *ScriptValidator) validateFile(filename string) error {
	fmt.Fprintf(v.out, "Validating %s...\n", filename)

	baseName := filepath.Base(filename)
	ext := filepath.Ext(baseName)
	if _, err := script.FormatFromPath(baseName); err != nil {
		return err
	}

	nameWithoutExt := strings.TrimSuffix(baseName, ext)
	if !isValidScriptFilename(nameWithoutExt) {
		return fmt.Errorf("script filename '%s' must be lowercase snake_case (e.g., cold_showers.yaml, not cold-showers.yaml or ColdShowers.yaml)", baseName)
	}

	v.errors = nil

	s, err := script.Load(filename)
	if err != nil {
		var cerr *script.ConfigurationError
		if errors.As(err, &cerr) {
			for _, problem := range cerr.Problems {
				v.addError(problem)
			}
			return fmt.Errorf("validation errors in %s:\n%s", filename, strings.Join(v.errors, "\n"))
		}
		return err
	}

	v.validateScript(s)

	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors in %s:\n%s", filename, strings.Join(v.errors, "\n"))
	}

	fmt.Fprintf(v.out, "  %q: %d rounds, %d prosecution / %d defense statements, %d exhibits\n",
		s.Name, s.Rounds(), len(s.Prosecution), len(s.Defense), len(s.Evidence))
	return nil
}

// validateScript applies style rules on top of script.Validate.
func (v *ScriptValidator) validateScript(s *script.Script) {
	if strings.TrimSpace(s.Name) == "" {
		v.addError("script has no name")
	}

	for _, e := range s.Evidence {
		v.validateIDFormat("evidence ID", e.ID)
		if strings.TrimSpace(e.Title) == "" {
			v.addError(fmt.Sprintf("evidence '%s' has no title", e.ID))
		}
	}

	for party, counsel := range s.Counsel {
		if strings.TrimSpace(counsel.Name) == "" {
			v.addError(fmt.Sprintf("counsel for %s has no name", party))
		}
	}

	v.validateStatements(script.PartyProsecution, s.Prosecution)
	v.validateStatements(script.PartyDefense, s.Defense)
}

func (v *ScriptValidator) validateStatements(party script.Party, stmts []script.Statement) {
	for i, st := range stmts {
		if strings.TrimSpace(st.Text) != st.Text {
			v.addError(fmt.Sprintf("%s[%d] has leading or trailing whitespace", party, i))
		}
	}
}

func (v *ScriptValidator) validateIDFormat(fieldName, id string) {
	if id == "" {
		return
	}

	if !isValidID(id) {
		v.addError(fmt.Sprintf("%s '%s' should be lowercase snake_case", fieldName, id))
	}
}

func (v *ScriptValidator) addError(msg string) {
	v.errors = append(v.errors, "  - "+msg)
}

var (
	validIDRegex       = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)
	validFilenameRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)
)

func isValidID(id string) bool {
	return validIDRegex.MatchString(id)
}

func isValidScriptFilename(name string) bool {
	// Allow 'x.' prefix for experimental scripts
	name = strings.TrimPrefix(name, "x.")
	return validFilenameRegex.MatchString(name)
}
