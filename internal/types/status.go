package types

// Status is the lifecycle status of a stored record
type Status string

const (
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
)

func (s Status) String() string {
	return string(s)
}
