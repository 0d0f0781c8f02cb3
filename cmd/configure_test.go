// SPDX-License-Identifier: GPL-3.0-only
package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/herokl/k8s-log-viewer/pkg/log/client/config"
)

func TestWizardValues_RoundTrip(t *testing.T) {
	cfg := &config.Config{ShellPath: "/bin/bash", KubeconfigPath: "/home/me/.kube/config", KubectlPath: "kubectl"}
	v := valuesFrom(cfg)
	assert.Equal(t, "1000", v.tailLines)
	assert.Equal(t, "0", v.contextLines)
	assert.Equal(t, "300ms", v.debounce)
	assert.Equal(t, "substring", v.matchMode)

	v.tailLines = " 250 "
	v.contextLines = "2"
	v.matchMode = "regex"
	require.NoError(t, v.apply(cfg))

	q := cfg.Query()
	assert.Equal(t, 250, q.TailLines)
	assert.Equal(t, 2, q.ContextLines)
	assert.Equal(t, "regex", string(q.MatchMode))
	_, set := cfg.Defaults.Debounce.Get()
	assert.False(t, set, "default debounce is not written")
}

func TestWizardValues_Invalid(t *testing.T) {
	tests := []struct {
		name string
		edit func(v *wizardValues)
	}{
		{"tail not a number", func(v *wizardValues) { v.tailLines = "many" }},
		{"negative context", func(v *wizardValues) { v.contextLines = "-2" }},
		{"bad debounce", func(v *wizardValues) { v.debounce = "soon" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{}
			v := valuesFrom(cfg)
			tt.edit(&v)
			assert.Error(t, v.apply(cfg))
		})
	}
}

func TestValidateCount(t *testing.T) {
	assert.NoError(t, validateCount("0"))
	assert.NoError(t, validateCount("15"))
	assert.Error(t, validateCount("-1"))
	assert.Error(t, validateCount(""))
}
