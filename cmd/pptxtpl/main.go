// Command pptxtpl renders PowerPoint templates from the command line.
// It fills .pptx templates containing Jinja2-style tags with data from a
// JSON context file, lists the variables a template expects, and checks
// templates for structural problems before they ship.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/mtucker502/pptxtpl/pkg/pptxtpl"
)

const version = "0.4.0"

// CLI defines the command-line interface for pptxtpl.
var CLI struct {
	Render   RenderCmd   `cmd:"" help:"Render a template with JSON context data"`
	Vars     VarsCmd     `cmd:"" help:"List the variables a template references"`
	Validate ValidateCmd `cmd:"" help:"Check a template for structural problems"`
	Version  VersionCmd  `cmd:"" help:"Print version information"`
}

// RenderCmd renders a template with JSON context data.
type RenderCmd struct {
	Template string `arg:"" help:"Path to the .pptx template" type:"existingfile"`
	Context  string `short:"c" help:"Path to a JSON file with template data" type:"existingfile"`
	Out      string `short:"o" required:"" help:"Output .pptx path" type:"path"`
	Strict   bool   `help:"Fail when rendered output still contains template delimiters"`
}

func (c *RenderCmd) Run() error {
	ctx := pptxtpl.Context{}
	if c.Context != "" {
		data, err := os.ReadFile(c.Context)
		if err != nil {
			return fmt.Errorf("failed to read context file: %w", err)
		}
		if err := json.Unmarshal(data, &ctx); err != nil {
			return fmt.Errorf("failed to parse context file: %w", err)
		}
	}

	config := pptxtpl.ConfigFromEnvironment()
	if c.Strict {
		config.StrictMode = true
	}

	engine := pptxtpl.NewWithConfig(config)
	if err := engine.RenderFile(c.Template, ctx, c.Out); err != nil {
		return err
	}

	fmt.Printf("Rendered: %s\n", c.Out)
	return nil
}

// VarsCmd lists the variables a template references.
type VarsCmd struct {
	Template string `arg:"" help:"Path to the .pptx template" type:"existingfile"`
	JSON     bool   `help:"Output as JSON"`
}

func (c *VarsCmd) Run() error {
	tpl, err := pptxtpl.Open(c.Template)
	if err != nil {
		return err
	}

	vars := tpl.UndeclaredVariables()
	if c.JSON {
		data, err := json.MarshalIndent(vars, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to serialize variables: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	if len(vars) == 0 {
		fmt.Println("No template variables found.")
		return nil
	}
	for _, name := range vars {
		fmt.Println(name)
	}
	return nil
}

// ValidateCmd checks a template for structural problems.
type ValidateCmd struct {
	Template string `arg:"" help:"Path to the .pptx template" type:"existingfile"`
	JSON     bool   `help:"Output as JSON"`
}

func (c *ValidateCmd) Run() error {
	tpl, err := pptxtpl.Open(c.Template)
	if err != nil {
		return err
	}

	result := tpl.Validate()
	if c.JSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to serialize result: %w", err)
		}
		fmt.Println(string(data))
	} else {
		fmt.Printf("Checked %d slide(s)\n", result.CheckedSlides)
		for _, issue := range result.Issues {
			fmt.Printf("  [%s] slide %d: %s (%s)\n",
				strings.ToUpper(string(issue.Severity)), issue.Slide, issue.Message, issue.Code)
		}
		if result.Valid {
			fmt.Println("Template is valid.")
		}
	}

	if !result.Valid {
		return fmt.Errorf("validation failed")
	}
	return nil
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("pptxtpl version %s\n", version)
	return nil
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("pptxtpl"),
		kong.Description("PowerPoint template renderer with Jinja2-style tags"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
