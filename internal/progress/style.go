package progress

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/ndisidore/tscspin/pkg/diag"
)

var (
	_pathStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("14")) // bright cyan
	_locationStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))  // yellow
	_errWordStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))  // bright red
	_codeStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))  // gray
)

// recolorHeader renders a diagnostic as "path:location - error CODE:message"
// with the path and location set apart from the code and message.
func recolorHeader(h diag.Header) string {
	return _pathStyle.Render(h.Path) + ":" + _locationStyle.Render(h.Location) + " - " +
		_errWordStyle.Render("error") + " " + _codeStyle.Render(h.Code) + ":" + h.Message
}
