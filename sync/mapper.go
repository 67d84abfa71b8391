// ABOUTME: Bidirectional mapping between lead statuses and board lanes
// ABOUTME: Total on the status side, defaulting to New on both sides
package sync

import (
	"github.com/harperreed/leadsync/models"
)

// StatusMapper converts between the closed status vocabulary and the task
// board's lane identifiers. Lanes come from configuration and may be
// missing; a missing lane is an absent mapping, never an error.
type StatusMapper struct {
	statusToLane map[string]string
	laneToStatus map[string]string
}

// NewStatusMapper builds a mapper from status→lane pairs. Empty lane ids
// are skipped.
func NewStatusMapper(mapping map[string]string) *StatusMapper {
	m := &StatusMapper{
		statusToLane: make(map[string]string, len(mapping)),
		laneToStatus: make(map[string]string, len(mapping)),
	}
	for status, lane := range mapping {
		if lane == "" {
			continue
		}
		status = models.NormalizeStatus(status)
		m.statusToLane[status] = lane
		m.laneToStatus[lane] = status
	}
	return m
}

// StatusToLane maps a status to its lane. Unrecognized or unconfigured
// statuses fall back to the New lane. ok is false only when no usable lane
// exists at all, which callers treat as a non-fatal skip.
func (m *StatusMapper) StatusToLane(status string) (string, bool) {
	normalized := models.NormalizeStatus(status)
	if lane, ok := m.statusToLane[normalized]; ok {
		return lane, true
	}
	lane, ok := m.statusToLane[models.StatusNew]
	return lane, ok
}

// LaneToStatus maps a lane back to a status, defaulting to New for lanes
// this system does not manage.
func (m *StatusMapper) LaneToStatus(laneID string) string {
	if status, ok := m.laneToStatus[laneID]; ok {
		return status
	}
	return models.StatusNew
}
