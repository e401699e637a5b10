package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_ValidateAcceptsKnownFormats(t *testing.T) {
	assert.NoError(t, Config{Format: FormatTextual, Workers: 2, Port: 10221}.Validate())
	assert.NoError(t, Config{Format: FormatBinary, Workers: 2, Port: 10221}.Validate())
}

func TestConfig_ValidateRejectsUnknownFormat(t *testing.T) {
	err := Config{Format: "xml", Workers: 2, Port: 10221}.Validate()
	assert.Error(t, err)
}

func TestConfig_ValidateRejectsNonPositiveWorkers(t *testing.T) {
	err := Config{Format: FormatTextual, Workers: 0, Port: 10221}.Validate()
	assert.Error(t, err)
}

func TestConfig_ValidateRejectsOutOfRangePort(t *testing.T) {
	err := Config{Format: FormatTextual, Workers: 2, Port: 70000}.Validate()
	assert.Error(t, err)
}
