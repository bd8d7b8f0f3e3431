package subscriber

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/abgdnv/producttags/pkg/messaging"
	"github.com/abgdnv/producttags/pkg/messaging/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAckableMsg struct {
	mock.Mock
}

func (m *mockAckableMsg) Data() []byte {
	args := m.Called()
	return args.Get(0).([]byte)
}

func (m *mockAckableMsg) Subject() string {
	args := m.Called()
	return args.String(0)
}

func (m *mockAckableMsg) Ack() error {
	args := m.Called()
	return args.Error(0)
}

func (m *mockAckableMsg) Nak() error {
	args := m.Called()
	return args.Error(0)
}

func payload(t *testing.T, e messaging.Event) []byte {
	t.Helper()
	data, err := e.Payload()
	require.NoError(t, err)
	return data
}

func Test_handleMessage(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	header := events.NewHeader(context.Background())
	testCases := []struct {
		name       string
		newMockMsg func() *mockAckableMsg
	}{
		{
			name: "product created",
			newMockMsg: func() *mockAckableMsg {
				msg := new(mockAckableMsg)
				msg.On("Subject").Return(messaging.ProductCreatedSubject)
				msg.On("Data").Return(payload(t, events.ProductCreatedEvent{Header: header, ProductID: "p1", ExternalID: 7, Name: "Stamp", Tag: -1})).Times(1)
				msg.On("Ack").Return(nil).Times(1)
				return msg
			},
		},
		{
			name: "tag updated",
			newMockMsg: func() *mockAckableMsg {
				msg := new(mockAckableMsg)
				msg.On("Subject").Return(messaging.ProductTagUpdatedSubject)
				msg.On("Data").Return(payload(t, events.ProductTagUpdatedEvent{Header: header, ProductID: "p1", ExternalID: 7, Tag: 1})).Times(1)
				msg.On("Ack").Return(nil).Times(1)
				return msg
			},
		},
		{
			name: "bulk updated",
			newMockMsg: func() *mockAckableMsg {
				msg := new(mockAckableMsg)
				msg.On("Subject").Return(messaging.ProductTagsBulkUpdateSubject)
				msg.On("Data").Return(payload(t, events.ProductTagsBulkUpdatedEvent{Header: header, ExternalIDs: []int64{1, 2}, Tag: 0, MatchedCount: 2, ModifiedCount: 1})).Times(1)
				msg.On("Ack").Return(nil).Times(1)
				return msg
			},
		},
		{
			name: "deleted",
			newMockMsg: func() *mockAckableMsg {
				msg := new(mockAckableMsg)
				msg.On("Subject").Return(messaging.ProductDeletedSubject)
				msg.On("Data").Return(payload(t, events.ProductDeletedEvent{Header: header, ProductID: "p1"})).Times(1)
				msg.On("Ack").Return(nil).Times(1)
				return msg
			},
		},
		{
			name: "invalid message",
			newMockMsg: func() *mockAckableMsg {
				msg := new(mockAckableMsg)
				msg.On("Subject").Return(messaging.ProductCreatedSubject)
				msg.On("Data").Return([]byte("invalid data")).Times(1)
				msg.On("Nak").Return(nil).Times(1)
				return msg
			},
		},
		{
			name: "unknown subject",
			newMockMsg: func() *mockAckableMsg {
				msg := new(mockAckableMsg)
				msg.On("Subject").Return("products.renamed")
				msg.On("Data").Return([]byte(`{}`)).Times(1)
				msg.On("Nak").Return(nil).Times(1)
				return msg
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			mockMsg := tc.newMockMsg()

			// when
			handleMessage(context.Background(), mockMsg, logger)

			// then
			mockMsg.AssertExpectations(t)
		})
	}
}

func Test_decode(t *testing.T) {
	// given
	header := events.NewHeader(context.Background())
	data := payload(t, events.ProductTagsBulkUpdatedEvent{Header: header, ExternalIDs: []int64{3}, Tag: 1, MatchedCount: 1, ModifiedCount: 1})

	// when
	event, gotHeader, err := decode(messaging.ProductTagsBulkUpdateSubject, data)

	// then
	require.NoError(t, err)
	assert.Equal(t, header.EventID, gotHeader.EventID)
	bulk, ok := event.(events.ProductTagsBulkUpdatedEvent)
	require.True(t, ok)
	assert.Equal(t, []int64{3}, bulk.ExternalIDs)
	assert.Equal(t, int64(1), bulk.ModifiedCount)
}
