package chat

import "fmt"

// Mode is one entry of the query-mode enumeration the UI offers. The mode
// only affects the text sent over the wire and the display tag on the stored
// turn; the controller does not interpret it further.
type Mode struct {
	ID          string `yaml:"id"`
	Label       string `yaml:"label"`
	Description string `yaml:"description"`
}

// ModeSet is the injected query-mode lookup table. The default mode sends
// its text un-prefixed; every other mode prefixes the transmitted text with
// its label.
type ModeSet struct {
	modes     []Mode
	byID      map[string]Mode
	defaultID string
}

func NewModeSet(modes []Mode, defaultID string) *ModeSet {
	byID := make(map[string]Mode, len(modes))
	for _, m := range modes {
		byID[m.ID] = m
	}
	return &ModeSet{
		modes:     modes,
		byID:      byID,
		defaultID: defaultID,
	}
}

func (s *ModeSet) Modes() []Mode {
	ret := make([]Mode, len(s.modes))
	copy(ret, s.modes)
	return ret
}

func (s *ModeSet) DefaultID() string {
	return s.defaultID
}

// Label returns the display label for a mode id, falling back to the id
// itself for unknown modes.
func (s *ModeSet) Label(id string) string {
	if m, ok := s.byID[id]; ok {
		return m.Label
	}
	return id
}

// Prefix returns the transport-only prefix for a mode. It is empty for the
// default mode.
func (s *ModeSet) Prefix(id string) string {
	if id == s.defaultID {
		return ""
	}
	m, ok := s.byID[id]
	if !ok {
		return ""
	}
	return fmt.Sprintf("[Query Mode: %s] ", m.Label)
}
