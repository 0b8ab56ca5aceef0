package cli

import (
	"github.com/manifoldco/promptui"
)

// TextPrompt asks the user for a line of text, e.g. a host or
// username missing from config and not passed as a flag.
func TextPrompt(label string, defaultValue string) (string, error) {
	prompt := promptui.Prompt{
		Label:   label,
		Default: defaultValue,
	}
	return prompt.Run()
}

// PasswordPrompt asks for a masked line of input, used by amictl when
// --secret is omitted and no config file supplies one.
func PasswordPrompt(label string) (string, error) {
	prompt := promptui.Prompt{
		Label: label,
		Mask:  '*',
	}
	return prompt.Run()
}
