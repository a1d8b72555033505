// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package backend

import (
	"errors"

	"github.com/gogpu/compositor/output"
	"github.com/gogpu/compositor/region"
	"github.com/gogpu/compositor/render"
)

// State is the display state of one output as seen by its connector.
type State struct {
	Config output.Config

	// Buffer is the scanned out backbuffer. It is nil when only the
	// configuration is tested.
	Buffer render.RenderTarget

	// Damage is the changed part of Buffer in buffer coordinates.
	Damage region.Region
}

// Connector applies display state atomically. Test validates a state
// without side effects; Commit applies it entirely or not at all.
type Connector interface {
	Test(s State) error
	Commit(s State) error

	// Current returns the last committed state.
	Current() State
}

// ConnectorFactory creates the connector of an output.
type ConnectorFactory func(o *output.Output) (Connector, error)

// LegacyConnector is a display interface without atomic test. State is
// attached piece by piece and applied by Commit; Rollback drops what was
// attached since the last commit.
type LegacyConnector interface {
	Attach(s State) error
	Commit() error
	Rollback()
}

// legacyAdapter gives a LegacyConnector the atomic contract.
type legacyAdapter struct {
	conn    LegacyConnector
	current State
}

// NewLegacyAdapter wraps a legacy connector. Test attaches and rolls back;
// a failed Commit rolls back so no partial state stays attached.
func NewLegacyAdapter(conn LegacyConnector) Connector {
	return &legacyAdapter{conn: conn}
}

func (a *legacyAdapter) Test(s State) error {
	err := a.conn.Attach(s)
	a.conn.Rollback()
	return err
}

func (a *legacyAdapter) Commit(s State) error {
	if err := a.conn.Attach(s); err != nil {
		a.conn.Rollback()
		return err
	}
	if err := a.conn.Commit(); err != nil {
		a.conn.Rollback()
		return err
	}
	a.current = s
	return nil
}

func (a *legacyAdapter) Current() State { return a.current }

var errNoConnector = errors.New("backend: nil connector")
