package pool

// Job はワーカーが一度だけ実行するジョブを表す
type Job func()

// MessageKind はキューに流れるメッセージの種類
type MessageKind int

const (
	// KindNewJob はジョブを運ぶメッセージ
	KindNewJob MessageKind = iota
	// KindTerminate はワーカー一つに終了を指示するメッセージ
	KindTerminate
)

func (k MessageKind) String() string {
	switch k {
	case KindNewJob:
		return "NewJob"
	case KindTerminate:
		return "Terminate"
	default:
		return "Unknown"
	}
}

// Message はワーカーへのメッセージ
type Message struct {
	Kind  MessageKind
	Job   Job
	JobID string
}

func newJobMessage(id string, job Job) Message {
	return Message{Kind: KindNewJob, Job: job, JobID: id}
}

func terminateMessage() Message {
	return Message{Kind: KindTerminate}
}
