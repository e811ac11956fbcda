package engine

import (
	"context"

	"C90FM/model"
)

// NullEngine stands in when no native engine could be loaded. Every method
// is a safe no-op returning zero values; consumers degrade instead of
// crashing.
type NullEngine struct{}

func NewNullEngine() *NullEngine { return &NullEngine{} }

func (n *NullEngine) Available() bool                            { return false }
func (n *NullEngine) Setup(context.Context) error                { return nil }
func (n *NullEngine) Add([]model.Track) error                    { return nil }
func (n *NullEngine) Reset() error                               { return nil }
func (n *NullEngine) Play() error                                { return nil }
func (n *NullEngine) Pause() error                               { return nil }
func (n *NullEngine) State() (model.PlaybackState, error)        { return model.StateNone, nil }
func (n *NullEngine) SkipToNext() error                          { return nil }
func (n *NullEngine) SkipToPrevious() error                      { return nil }
func (n *NullEngine) SkipTo(int) error                           { return nil }
func (n *NullEngine) SeekTo(int64) error                         { return nil }
func (n *NullEngine) Progress() (model.Progress, error)          { return model.Progress{}, nil }
func (n *NullEngine) Queue() ([]model.Track, error)              { return nil, nil }
func (n *NullEngine) ActiveTrack() (*model.Track, error)         { return nil, nil }
func (n *NullEngine) UpdateMetadata(int, MetadataPatch) error    { return nil }
func (n *NullEngine) Events() <-chan Event                       { return nil }
func (n *NullEngine) Close() error                               { return nil }
