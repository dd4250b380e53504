package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	lsaerrors "lsa/internal/errors"
	"lsa/internal/storage"
)

var importCodesCmd = &cobra.Command{
	Use:   "import-codes <file.json>",
	Short: "Import decoded diagnostic code definitions",
	Long: `Loads a JSON array of message code definitions into the knowledge base.
Explain uses them to decode formatter codes found in logs.

Severity comes from the code's trailing letter (I/W/E/F). An explicit
"severity" field is only needed for codes without one, and must agree
with the trailing letter when both are present.

Expected format:
  [
    {"code": "PPDE1234E",
     "title": "Variable not declared",
     "body": "The named variable is used before declaration..."}
  ]`,
	Args: cobra.ExactArgs(1),
	Run:  runImportCodes,
}

func init() {
	rootCmd.AddCommand(importCodesCmd)
}

type codeDefJSON struct {
	Code     string `json:"code"`
	Severity string `json:"severity"`
	Title    string `json:"title"`
	Body     string `json:"body"`
}

// severityForCode resolves a definition's severity from the code's
// trailing letter, the same way the log parser reads it. An explicit
// severity fills in for codes without a trailing letter and must match
// when the code carries one.
func severityForCode(code, explicit string) (string, error) {
	derived := ""
	if code != "" {
		switch last := code[len(code)-1:]; last {
		case "I", "W", "E", "F":
			derived = last
		}
	}

	switch explicit {
	case "":
		if derived == "" {
			return "", lsaerrors.New(lsaerrors.ConfigInvalid,
				fmt.Sprintf("code %s has no severity field and no I/W/E/F trailing letter", code))
		}
		return derived, nil
	case "I", "W", "E", "F":
		if derived != "" && derived != explicit {
			return "", lsaerrors.New(lsaerrors.ConfigInvalid,
				fmt.Sprintf("code %s declares severity %s but its trailing letter says %s",
					code, explicit, derived))
		}
		return explicit, nil
	default:
		return "", lsaerrors.New(lsaerrors.ConfigInvalid,
			fmt.Sprintf("code %s has invalid severity %q", code, explicit))
	}
}

func runImportCodes(cmd *cobra.Command, args []string) {
	sourcePath := args[0]

	root, err := resolveSnapshot()
	if err != nil {
		fail(err)
	}

	logger := newLogger()
	db, err := openExistingDB(root, logger)
	if err != nil {
		fail(err)
	}
	defer func() { _ = db.Close() }()

	data, err := os.ReadFile(sourcePath)
	if err != nil {
		fail(lsaerrors.Wrap(lsaerrors.InputMissing,
			fmt.Sprintf("cannot read %s", sourcePath), err))
	}

	var defs []codeDefJSON
	if err := json.Unmarshal(data, &defs); err != nil {
		fail(lsaerrors.Wrap(lsaerrors.ConfigInvalid,
			fmt.Sprintf("failed to parse %s", sourcePath), err))
	}

	imported := 0
	for i, def := range defs {
		if def.Code == "" {
			fail(lsaerrors.New(lsaerrors.ConfigInvalid,
				fmt.Sprintf("%s: entry %d has no code", sourcePath, i)))
		}
		severity, err := severityForCode(def.Code, def.Severity)
		if err != nil {
			fail(lsaerrors.Wrap(lsaerrors.ConfigInvalid,
				fmt.Sprintf("%s: entry %d", sourcePath, i), err))
		}

		if err := db.UpsertMessageCode(&storage.MessageCode{
			Code:       def.Code,
			Severity:   severity,
			Title:      def.Title,
			Body:       def.Body,
			SourcePath: sourcePath,
		}); err != nil {
			fail(err)
		}
		imported++
	}

	fmt.Printf("Imported %d code definitions from %s\n", imported, sourcePath)
}
