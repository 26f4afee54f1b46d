package banner

import (
	"github.com/charmbracelet/lipgloss"

	"steadydb/internal/tui/styles"
)

const ascii = `
   _____ __                 __      ____  ____ 
  / ___// /____  ____ _____/ /_  __/ __ \/ __ )
  \__ \/ __/ _ \/ __ '/ __  / / / / / / / __  |
 ___/ / /_/  __/ /_/ / /_/ / /_/ / /_/ / /_/ / 
/____/\__/\___/\__,_/\__,_/\__, /_____/_____/  
                          /____/               `

// String renders the banner for the current terminal.
func String() string {
	style := lipgloss.NewStyle().
		Foreground(styles.ColorBanner).
		Bold(true)
	return "\n" + style.Render(ascii) + "\n"
}
