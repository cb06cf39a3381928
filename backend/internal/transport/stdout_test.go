package transport

import (
	"bytes"
	"context"
	"testing"

	"github.com/Pack144/packman-sub000/shared/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStdout_SendBatch(t *testing.T) {
	var out bytes.Buffer
	store := newMemStore(map[domain.FileRef][]byte{"flyer.pdf": make([]byte, 2048)})
	conn, err := NewStdout(&out, store).Open(context.Background())
	require.NoError(t, err)
	defer conn.Close()

	n, err := conn.SendBatch(context.Background(), []*OutboundEmail{testEmail("ada@example.org", "flyer.pdf", "gone.pdf")})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	s := out.String()
	assert.Contains(t, s, `To: "Ada Parent" <ada@example.org>`)
	assert.Contains(t, s, "Subject: [Pack 144] Campout")
	assert.Contains(t, s, "List-Id: <lists.pack144.org> Pack 144")
	assert.Contains(t, s, "Attachment: flyer.pdf (2.0 kB)")
	assert.Contains(t, s, "Attachment: gone.pdf (missing)")
	assert.Contains(t, s, "Bring a sleeping bag.")
}
