package reservation

type Status string

const (
	StatusReserved  Status = "reserved"
	StatusReleased  Status = "released"
	StatusFinalized Status = "finalized"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) IsValid() bool {
	switch s {
	case StatusReserved, StatusReleased, StatusFinalized:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transition leaves this status.
// Released is not terminal: re-reservation moves it back to Reserved.
func (s Status) IsTerminal() bool {
	return s == StatusFinalized
}
