package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	enter    key.Binding
	back     key.Binding
	grab     key.Binding
	trash    key.Binding
	bin      key.Binding
	restore  key.Binding
	retry    key.Binding
	toggle   key.Binding
	next     key.Binding
	previous key.Binding
	seekBack key.Binding
	seekFwd  key.Binding
	jumpBack key.Binding
	jumpFwd  key.Binding
	repeat   key.Binding
	shuffle  key.Binding
	loop     key.Binding
	louder   key.Binding
	quieter  key.Binding
	mute     key.Binding
	copy     key.Binding
	help     key.Binding
	quit     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		enter:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open/play")),
		back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		grab:     key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "grab/drop")),
		trash:    key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "trash")),
		bin:      key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "trash bin")),
		restore:  key.NewBinding(key.WithKeys("u", "enter"), key.WithHelp("u", "restore")),
		retry:    key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "retry sync")),
		toggle:   key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play/pause")),
		next:     key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next")),
		previous: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "previous")),
		seekBack: key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "-5s")),
		seekFwd:  key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "+5s")),
		jumpBack: key.NewBinding(key.WithKeys("<"), key.WithHelp("<", "-30s")),
		jumpFwd:  key.NewBinding(key.WithKeys(">"), key.WithHelp(">", "+30s")),
		repeat:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "repeat one")),
		shuffle:  key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "shuffle")),
		loop:     key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "loop")),
		louder:   key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "volume up")),
		quieter:  key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "volume down")),
		mute:     key.NewBinding(key.WithKeys("M"), key.WithHelp("M", "mute")),
		copy:     key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy url")),
		help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.enter, k.grab, k.trash, k.toggle, k.help, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.enter, k.back, k.grab, k.trash, k.bin, k.restore},
		{k.toggle, k.next, k.previous, k.seekBack, k.seekFwd, k.jumpBack, k.jumpFwd},
		{k.repeat, k.shuffle, k.loop, k.louder, k.quieter, k.mute},
		{k.copy, k.retry, k.help, k.quit},
	}
}
