package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJobHistory_AddResultBounded(t *testing.T) {
	h := &JobHistory{}
	for i := 0; i < historyLimit+10; i++ {
		h.AddResult(JobResult{JobName: "matrix_warm", Success: true})
	}

	assert.Len(t, h.Results, historyLimit)
}

func TestJobHistory_SuccessRate(t *testing.T) {
	h := &JobHistory{}
	assert.Zero(t, h.SuccessRate())

	h.AddResult(JobResult{Success: true})
	h.AddResult(JobResult{Success: true})
	h.AddResult(JobResult{Success: false})

	assert.InDelta(t, 2.0/3.0, h.SuccessRate(), 1e-9)
}
