package organ

// EventType identifies a note event kind.
type EventType int

const (
	NoteOn EventType = iota
	NoteOff
	AllNotesOff
)

// Event is one note event, delivered in order at the start of a block.
// Velocity is the raw note velocity in [0,1]; Note and Velocity are ignored
// for AllNotesOff.
type Event struct {
	Type     EventType
	Note     int
	Velocity float32
}
