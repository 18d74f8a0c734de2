package recorder

// NoopRecorder is a no-op implementation used when history is disabled.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordRefresh(_ *RefreshEvent) error             { return nil }
func (n *NoopRecorder) Recent(_ string, _ int) ([]RefreshEvent, error) { return nil, nil }
func (n *NoopRecorder) Close() error                                   { return nil }
