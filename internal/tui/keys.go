package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit     key.Binding
	QuitRune key.Binding
	Back     key.Binding
	Enter    key.Binding
	Next     key.Binding
	Prev     key.Binding
	Details  key.Binding
	Another  key.Binding
	Cancel   key.Binding
	Run      key.Binding
	Left     key.Binding
	Right    key.Binding
	Up       key.Binding
	Down     key.Binding
	Remove   key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Quit:     key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "salir")),
		QuitRune: key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "salir")),
		Back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "volver")),
		Enter:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "aceptar")),
		Next:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "siguiente")),
		Prev:     key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "anterior")),
		Details:  key.NewBinding(key.WithKeys("d", "enter"), key.WithHelp("d", "estadísticas detalladas")),
		Another:  key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "cargar otro archivo")),
		Cancel:   key.NewBinding(key.WithKeys("ctrl+x"), key.WithHelp("ctrl+x", "cancelar selección")),
		Run:      key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "ejecutar simulación")),
		Left:     key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←", "anterior opción")),
		Right:    key.NewBinding(key.WithKeys("right", "l", " "), key.WithHelp("→", "siguiente opción")),
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑", "subir")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓", "bajar")),
		Remove:   key.NewBinding(key.WithKeys("x", "delete", "backspace"), key.WithHelp("x", "quitar cambio")),
	}
}

// bindingHelp adapts a fixed binding list to help.KeyMap.
type bindingHelp []key.Binding

func (b bindingHelp) ShortHelp() []key.Binding  { return b }
func (b bindingHelp) FullHelp() [][]key.Binding { return [][]key.Binding{b} }
