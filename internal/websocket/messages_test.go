package websocket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeInbound(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr error
		want    string
	}{
		{
			name: "document update",
			data: `{"type":"document_update","content":{"blocks":[]},"sender_id":"tab-1","user_id":1,"username":"alice"}`,
			want: TypeDocumentUpdate,
		},
		{
			name: "cursor connect without color",
			data: `{"type":"cursor_connect","cursor_id":"c1","user_id":1,"username":"alice"}`,
			want: TypeCursorConnect,
		},
		{
			name: "cursor update without identity",
			data: `{"type":"cursor_update","cursor_id":"c1","position":{"index":4}}`,
			want: TypeCursorUpdate,
		},
		{
			name:    "invalid json",
			data:    `{"type":`,
			wantErr: ErrMalformedFrame,
		},
		{
			name:    "not an object",
			data:    `[1,2,3]`,
			wantErr: ErrMalformedFrame,
		},
		{
			name:    "unknown type",
			data:    `{"type":"chat_message"}`,
			wantErr: ErrUnknownType,
		},
		{
			name:    "missing type",
			data:    `{"cursor_id":"c1"}`,
			wantErr: ErrMissingField,
		},
		{
			name:    "document update without content",
			data:    `{"type":"document_update","sender_id":"tab-1","user_id":1,"username":"alice"}`,
			wantErr: ErrMissingField,
		},
		{
			name:    "null content",
			data:    `{"type":"document_update","content":null,"sender_id":"tab-1","user_id":1,"username":"alice"}`,
			wantErr: ErrMissingField,
		},
		{
			name:    "cursor connect without username",
			data:    `{"type":"cursor_connect","cursor_id":"c1","user_id":1}`,
			wantErr: ErrMissingField,
		},
		{
			name:    "cursor update without position",
			data:    `{"type":"cursor_update","cursor_id":"c1"}`,
			wantErr: ErrMissingField,
		},
		{
			name:    "wrong field type",
			data:    `{"type":"cursor_connect","cursor_id":{"x":1},"user_id":1,"username":"alice"}`,
			wantErr: ErrMalformedFrame,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := DecodeInbound([]byte(tt.data))

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.True(t, IsFrameError(err))
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, msg.MessageType())
		})
	}
}

func TestRoomName(t *testing.T) {
	assert.Equal(t, "document_42", RoomName(42))
}
