package log

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestSetLogger(t *testing.T) {
	defer ReplaceLogger(Logger())
	temp := t.TempDir()
	// set existed path
	assert.NoError(t, SetLogger(false, filepath.Join(temp, "eventrec.log")))
	_, err := os.Stat(filepath.Join(temp, "eventrec.log"))
	assert.NoError(t, err)
	// set non-existed path
	assert.NoError(t, SetLogger(true, filepath.Join(temp, "nested", "eventrec.log")))
	_, err = os.Stat(filepath.Join(temp, "nested", "eventrec.log"))
	assert.NoError(t, err)
	assert.NotNil(t, Logger())
}

func TestReplaceLogger(t *testing.T) {
	old := Logger()
	defer ReplaceLogger(old)
	nop := zap.NewNop()
	ReplaceLogger(nop)
	assert.Same(t, nop, Logger())
}
