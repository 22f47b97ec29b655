package worker

type State int

const (
	StateIdle State = iota
	StateRunning
	StateBackoffAfterError
)

func (s State) String() string {
	return [...]string{"idle", "running", "backoff_after_error"}[s]
}
