package pipeline

// Stage identifies where in the pipeline a progress event originated.
type Stage string

const (
	StageExtracting   Stage = "extracting"
	StageChunked      Stage = "chunked"
	StageSynthesizing Stage = "synthesizing"
	StageChunkDone    Stage = "chunk_done"
	StageAssembling   Stage = "assembling"
	StageSplitting    Stage = "splitting"
	StageDone         Stage = "done"
	StageFailed       Stage = "failed"
)

// Event is an advisory progress notification. Events are delivered
// non-blocking: when a consumer falls behind, events are dropped rather
// than stalling synthesis.
type Event struct {
	Title       string
	Stage       Stage
	ChunkIndex  int
	TotalChunks int
	Attempt     int
	Err         error
}
