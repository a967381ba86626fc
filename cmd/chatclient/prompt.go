package main

import (
	"strings"

	"github.com/pkg/errors"
	input "github.com/tcnksm/go-input"

	"github.com/connect-therapy/session-chat/internal/relay"
)

// promptConfirm asks a yes/no question on the terminal. Any failure to read
// an answer counts as "no".
func promptConfirm(lines *lineReader, view *TerminalView) relay.ConfirmFunc {
	ui := &input.UI{
		Writer: view.Writer(),
		Reader: lines,
	}

	return func(prompt string) bool {
		answer, err := ui.Ask(prompt+" [y/N]", &input.Options{
			Default: "n",
			Loop:    true,
			ValidateFunc: func(answer string) error {
				switch strings.ToLower(strings.TrimSpace(answer)) {
				case "y", "yes", "n", "no", "":
					return nil
				default:
					return errors.Errorf("please enter 'y' or 'n'")
				}
			},
		})
		if err != nil {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "y", "yes":
			return true
		default:
			return false
		}
	}
}
