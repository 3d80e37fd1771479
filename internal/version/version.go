package version

import "fmt"

const (
	Version = "v0.1.0"

	colorReset    = "\033[0m"
	colorCyanBold = "\033[36;1m"
)

// asciiArtTpl returns the ASCII art banner shared by the FOIA DB tools.
func asciiArtTpl() string {
	asciiArt := `
    ________  _______       ____  ____
   / ____/ / / /  _/ |     / __ \/ __ )
  / /_  / / / // / | | /| / / / / __  |
 / __/ / /_/ // /  | |/ |/ / /_/ / /_/ /
/_/    \____/___/  |__/|__/_____/_____/
%s ` + Version

	asciiArt = asciiArt[1:]                          // This just removes the first newline character
	asciiArt = colorCyanBold + asciiArt + colorReset // Add color to the ASCII art

	return asciiArt
}

// ShellVersion returns the version banner of the foiadb shell.
func ShellVersion() string {
	return fmt.Sprintf(asciiArtTpl(), "Shell")
}

// SeedVersion returns the version banner of the foiaseed importer.
func SeedVersion() string {
	return fmt.Sprintf(asciiArtTpl(), "Seed")
}

// ExportVersion returns the version banner of the foiaexport tool.
func ExportVersion() string {
	return fmt.Sprintf(asciiArtTpl(), "Export")
}
