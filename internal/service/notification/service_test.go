package notification

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"bloodlink/internal/domain"
	"bloodlink/internal/mocks"
	"bloodlink/internal/repository"
	"bloodlink/internal/repository/memory"
)

func newMemoryService(t *testing.T, opts Options) (Service, *repository.Repositories) {
	t.Helper()
	repos := memory.NewStore().Repositories()
	return NewService(repos.Notification, repos.User, nil, opts, zap.NewNop()), repos
}

func TestFanOut_ExcludesActorAndDuplicates(t *testing.T) {
	svc, repos := newMemoryService(t, Options{Concurrency: 4})
	ctx := context.Background()
	requestID := uuid.New()

	tmpl := domain.NotificationTemplate{
		Type:           domain.NotifRequest,
		ActorEmail:     "q@example.org",
		RequesterEmail: "q@example.org",
		RequestID:      &requestID,
		Message:        "need blood",
		BloodType:      "O-",
	}
	n := svc.FanOut(ctx, tmpl, []string{"a@example.org", "q@example.org", "b@example.org", "a@example.org", ""})

	assert.Equal(t, 2, n)
	for _, email := range []string{"a@example.org", "b@example.org"} {
		count, err := repos.Notification.CountUnread(ctx, email)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count, email)
	}
	count, err := repos.Notification.CountUnread(ctx, "q@example.org")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestFanOut_ManyRecipients(t *testing.T) {
	svc, repos := newMemoryService(t, Options{Concurrency: 3})
	ctx := context.Background()

	recipients := make([]string, 40)
	for i := range recipients {
		recipients[i] = fmt.Sprintf("donor%d@example.org", i)
	}
	n := svc.FanOut(ctx, domain.NotificationTemplate{Type: domain.NotifEmergency, ActorEmail: "q@example.org"}, recipients)

	assert.Equal(t, 40, n)
	list, total, err := repos.Notification.ListByRecipient(ctx, "donor39@example.org", false, domain.DefaultPagination())
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, domain.NotApplicable, list[0].Urgency)
}

func TestFanOut_FailureIsLoggedNotReturned(t *testing.T) {
	repo := new(mocks.NotificationRepository)
	core, logs := observer.New(zap.WarnLevel)
	svc := NewService(repo, nil, nil, Options{Concurrency: 2}, zap.New(core))

	repo.On("Create", mock.Anything, mock.MatchedBy(func(n *domain.Notification) bool {
		return n.RecipientEmail == "broken@example.org"
	})).Return(errors.New("insert failed"))
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)

	n := svc.FanOut(context.Background(), domain.NotificationTemplate{Type: domain.NotifOffer},
		[]string{"ok@example.org", "broken@example.org", "fine@example.org"})

	assert.Equal(t, 2, n)
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "failed to store notification", entry.Message)
	assert.Equal(t, "broken@example.org", entry.ContextMap()["recipient"])
}

func TestFanOut_SendsEmailsWhenEnabled(t *testing.T) {
	repos := memory.NewStore().Repositories()
	emailSvc := new(mocks.EmailService)
	svc := NewService(repos.Notification, repos.User, emailSvc, Options{EmailEnabled: true}, zap.NewNop())

	require.NoError(t, repos.User.Create(context.Background(), &domain.User{
		ID: uuid.New(), Email: "d@example.org", FullName: "Dana", Role: domain.RoleDonor, Status: domain.UserActive,
	}))
	done := make(chan struct{})
	emailSvc.On("SendNotificationEmail", mock.Anything, "d@example.org", "Dana", mock.Anything).
		Return(errors.New("smtp down")).
		Run(func(mock.Arguments) { close(done) })

	assert.True(t, svc.Notify(context.Background(), domain.NotificationTemplate{Type: domain.NotifResponse}, "d@example.org"))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("email was not sent")
	}
}

func TestMarkRead_IdempotentAndOwned(t *testing.T) {
	svc, repos := newMemoryService(t, Options{})
	ctx := context.Background()
	notif := domain.NotificationTemplate{Type: domain.NotifResponse}.For("q@example.org")
	require.NoError(t, repos.Notification.Create(ctx, notif))

	require.NoError(t, svc.MarkRead(ctx, notif.ID, "q@example.org"))
	require.NoError(t, svc.MarkRead(ctx, notif.ID, "q@example.org"))

	stored, err := svc.GetByID(ctx, notif.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsRead)

	err = svc.MarkRead(ctx, notif.ID, "intruder@example.org")
	assert.ErrorIs(t, err, domain.ErrPermission)

	err = svc.MarkRead(ctx, uuid.New(), "q@example.org")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListForUser_BoundedAndNewestFirst(t *testing.T) {
	svc, _ := newMemoryService(t, Options{ListLimit: 3})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		svc.Notify(ctx, domain.NotificationTemplate{Type: domain.NotifRequest, Message: fmt.Sprintf("m%d", i)}, "d@example.org")
	}

	page, err := svc.ListForUser(ctx, "d@example.org", false, domain.PaginationParams{Page: 1, PageSize: 100})
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.TotalItems)
	require.Len(t, page.Data, 3)
	assert.Equal(t, "m4", page.Data[0].Message)
	assert.True(t, page.HasNext)

	require.NoError(t, svc.MarkAllRead(ctx, "d@example.org"))
	unread, err := svc.UnreadCount(ctx, "d@example.org")
	require.NoError(t, err)
	assert.Zero(t, unread)
}

func TestClearForRequest_SwallowsErrors(t *testing.T) {
	repo := new(mocks.NotificationRepository)
	svc := NewService(repo, nil, nil, Options{}, zap.NewNop())
	id := uuid.New()

	repo.On("DeleteByRequest", mock.Anything, id, []domain.NotificationType(nil)).Return(int64(0), errors.New("timeout"))

	assert.Zero(t, svc.ClearForRequest(context.Background(), id))
	repo.AssertExpectations(t)
}
