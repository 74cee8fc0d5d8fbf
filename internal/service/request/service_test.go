package request

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bloodlink/internal/domain"
	"bloodlink/internal/repository"
	"bloodlink/internal/repository/memory"
	"bloodlink/internal/service/notification"
)

type fixture struct {
	svc   Service
	repos *repository.Repositories
}

func setup(t *testing.T) *fixture {
	t.Helper()
	repos := memory.NewStore().Repositories()
	notifSvc := notification.NewService(repos.Notification, repos.User, nil, notification.Options{Concurrency: 4}, zap.NewNop())
	return &fixture{
		svc:   NewService(repos.BloodRequest, repos.User, repos.Notification, notifSvc, zap.NewNop()),
		repos: repos,
	}
}

func (f *fixture) user(t *testing.T, email string, role domain.UserRole) *domain.User {
	t.Helper()
	u := &domain.User{
		ID: uuid.New(), Email: email, FullName: "User " + email,
		Role: role, Status: domain.UserActive,
	}
	require.NoError(t, f.repos.User.Create(context.Background(), u))
	return u
}

func (f *fixture) inbox(t *testing.T, email string) []domain.Notification {
	t.Helper()
	list, _, err := f.repos.Notification.ListByRecipient(context.Background(), email, false, domain.DefaultPagination())
	require.NoError(t, err)
	return list
}

func broadcastInput() domain.CreateRequestInput {
	return domain.CreateRequestInput{
		BloodType: "O-", DonationType: domain.DonationWholeBlood, Units: 2, Urgency: domain.UrgencyCritical,
	}
}

func TestBroadcastAcceptScenario(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	donor := f.user(t, "d@example.org", domain.RoleDonor)
	requester := f.user(t, "q@example.org", domain.RoleIndividual)

	req, err := f.svc.CreateBroadcast(ctx, requester.Email, broadcastInput())
	require.NoError(t, err)
	assert.Equal(t, domain.RequestPending, req.Status)

	donorInbox := f.inbox(t, donor.Email)
	require.Len(t, donorInbox, 1)
	assert.Equal(t, domain.NotifRequest, donorInbox[0].Type)
	assert.Equal(t, req.ID, *donorInbox[0].RequestID)

	accepted, err := f.svc.Accept(ctx, req.ID, donor.Email)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestInProgress, accepted.Status)
	assert.Equal(t, donor.Email, *accepted.ResponderEmail)

	stored, err := f.svc.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestInProgress, stored.Status)

	assert.Empty(t, f.inbox(t, donor.Email))
	requesterInbox := f.inbox(t, requester.Email)
	require.Len(t, requesterInbox, 1)
	assert.Equal(t, domain.NotifResponse, requesterInbox[0].Type)
	assert.Contains(t, requesterInbox[0].Message, donor.FullName)
}

func TestBroadcast_ExcludesRequesterAndIneligible(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	requester := f.user(t, "q@example.org", domain.RoleDonor)
	f.user(t, "h@example.org", domain.RoleHospital)
	f.user(t, "b@example.org", domain.RoleBloodBank)
	f.user(t, "i@example.org", domain.RoleIndividual)
	banned := f.user(t, "x@example.org", domain.RoleDonor)
	require.NoError(t, f.repos.User.SetStatus(ctx, banned.Email, domain.UserBanned))

	_, err := f.svc.CreateBroadcast(ctx, requester.Email, broadcastInput())
	require.NoError(t, err)

	assert.Empty(t, f.inbox(t, requester.Email))
	assert.Empty(t, f.inbox(t, "i@example.org"))
	assert.Empty(t, f.inbox(t, banned.Email))
	assert.Len(t, f.inbox(t, "h@example.org"), 1)
	assert.Len(t, f.inbox(t, "b@example.org"), 1)
}

func TestCreateBroadcast_Validation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	requester := f.user(t, "q@example.org", domain.RoleIndividual)

	input := broadcastInput()
	input.Units = 0
	_, err := f.svc.CreateBroadcast(ctx, requester.Email, input)
	assert.ErrorIs(t, err, domain.ErrValidation)

	input = broadcastInput()
	input.Urgency = "Whenever"
	_, err = f.svc.CreateBroadcast(ctx, requester.Email, input)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.svc.CreateBroadcast(ctx, "ghost@example.org", broadcastInput())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAccept_ConcurrentOnlyOneWins(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	requester := f.user(t, "q@example.org", domain.RoleIndividual)
	req, err := f.svc.CreateBroadcast(ctx, requester.Email, broadcastInput())
	require.NoError(t, err)

	const n = 16
	responders := make([]string, n)
	for i := range responders {
		responders[i] = f.user(t, uuid.NewString()+"@example.org", domain.RoleDonor).Email
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i, email := range responders {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.svc.Accept(ctx, req.ID, email)
		}()
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrConflict)
	}
	assert.Equal(t, 1, wins)

	responses := 0
	for _, n := range f.inbox(t, requester.Email) {
		if n.Type == domain.NotifResponse {
			responses++
		}
	}
	assert.Equal(t, 1, responses)
}

func TestAccept_Guards(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	requester := f.user(t, "q@example.org", domain.RoleIndividual)
	donor := f.user(t, "d@example.org", domain.RoleDonor)
	req, err := f.svc.CreateBroadcast(ctx, requester.Email, broadcastInput())
	require.NoError(t, err)

	_, err = f.svc.Accept(ctx, req.ID, requester.Email)
	assert.ErrorIs(t, err, domain.ErrPermission)

	_, err = f.svc.Accept(ctx, uuid.New(), donor.Email)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.Accept(ctx, req.ID, donor.Email)
	require.NoError(t, err)
	_, err = f.svc.Accept(ctx, req.ID, donor.Email)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestDecline_BroadcastStaysPending(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	requester := f.user(t, "q@example.org", domain.RoleIndividual)
	d1 := f.user(t, "d1@example.org", domain.RoleDonor)
	d2 := f.user(t, "d2@example.org", domain.RoleDonor)
	req, err := f.svc.CreateBroadcast(ctx, requester.Email, broadcastInput())
	require.NoError(t, err)

	notifID := f.inbox(t, d1.Email)[0].ID
	declined, err := f.svc.Decline(ctx, req.ID, d1.Email, domain.DeclineInput{NotificationID: &notifID, Reason: "travelling"})
	require.NoError(t, err)
	assert.Equal(t, domain.RequestPending, declined.Status)

	_, err = f.svc.Decline(ctx, req.ID, d2.Email, domain.DeclineInput{})
	require.NoError(t, err)

	assert.Empty(t, f.inbox(t, d1.Email))
	assert.Empty(t, f.inbox(t, d2.Email))

	requesterInbox := f.inbox(t, requester.Email)
	require.Len(t, requesterInbox, 2)
	for _, n := range requesterInbox {
		assert.Equal(t, domain.NotifDecline, n.Type)
	}
	assert.Contains(t, requesterInbox[1].Message, "travelling")

	stored, _ := f.svc.GetByID(ctx, req.ID)
	assert.Equal(t, domain.RequestPending, stored.Status)
}

func TestDecline_ForeignNotification(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	requester := f.user(t, "q@example.org", domain.RoleIndividual)
	d1 := f.user(t, "d1@example.org", domain.RoleDonor)
	d2 := f.user(t, "d2@example.org", domain.RoleDonor)
	req, err := f.svc.CreateBroadcast(ctx, requester.Email, broadcastInput())
	require.NoError(t, err)

	foreign := f.inbox(t, d1.Email)[0].ID
	_, err = f.svc.Decline(ctx, req.ID, d2.Email, domain.DeclineInput{NotificationID: &foreign})
	assert.ErrorIs(t, err, domain.ErrPermission)
	assert.Len(t, f.inbox(t, d1.Email), 1)
}

func TestDirectRequest_DeclineIsTerminal(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	requester := f.user(t, "h@example.org", domain.RoleHospital)
	bank := f.user(t, "b@example.org", domain.RoleBloodBank)
	other := f.user(t, "o@example.org", domain.RoleBloodBank)

	req, err := f.svc.CreateDirect(ctx, requester.Email, domain.CreateDirectRequestInput{
		RecipientEmail: bank.Email, BloodType: "A+", DonationType: domain.DonationPlasma, Units: 4, Urgency: domain.UrgencyHigh,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RequestDirect, req.Kind)
	assert.Len(t, f.inbox(t, bank.Email), 1)
	assert.Empty(t, f.inbox(t, other.Email))

	_, err = f.svc.Accept(ctx, req.ID, other.Email)
	assert.ErrorIs(t, err, domain.ErrPermission)

	declined, err := f.svc.Decline(ctx, req.ID, bank.Email, domain.DeclineInput{Reason: "out of stock"})
	require.NoError(t, err)
	assert.Equal(t, domain.RequestDeclined, declined.Status)

	_, err = f.svc.Accept(ctx, req.ID, bank.Email)
	assert.ErrorIs(t, err, domain.ErrConflict)
	_, err = f.svc.Decline(ctx, req.ID, bank.Email, domain.DeclineInput{})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestCreateDirect_UnknownRecipient(t *testing.T) {
	f := setup(t)
	requester := f.user(t, "h@example.org", domain.RoleHospital)

	_, err := f.svc.CreateDirect(context.Background(), requester.Email, domain.CreateDirectRequestInput{
		RecipientEmail: "nobody@example.org", BloodType: "A+", DonationType: domain.DonationPlasma, Units: 1, Urgency: domain.UrgencyLow,
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.CreateDirect(context.Background(), requester.Email, domain.CreateDirectRequestInput{
		RecipientEmail: requester.Email, BloodType: "A+", DonationType: domain.DonationPlasma, Units: 1, Urgency: domain.UrgencyLow,
	})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCreateDirect_RecipientEmailIsCaseInsensitive(t *testing.T) {
	f := setup(t)
	requester := f.user(t, "h@example.org", domain.RoleHospital)
	bank := f.user(t, "bank@example.org", domain.RoleBloodBank)

	req, err := f.svc.CreateDirect(context.Background(), requester.Email, domain.CreateDirectRequestInput{
		RecipientEmail: "  Bank@Example.ORG ", BloodType: "B+", DonationType: domain.DonationWholeBlood, Units: 1, Urgency: domain.UrgencyMedium,
	})
	require.NoError(t, err)
	require.NotNil(t, req.RecipientEmail)
	assert.Equal(t, bank.Email, *req.RecipientEmail)
	assert.Len(t, f.inbox(t, bank.Email), 1)

	_, err = f.svc.CreateDirect(context.Background(), requester.Email, domain.CreateDirectRequestInput{
		RecipientEmail: "H@EXAMPLE.ORG", BloodType: "B+", DonationType: domain.DonationWholeBlood, Units: 1, Urgency: domain.UrgencyMedium,
	})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestEmergency_ReachesEveryActiveUser(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	requester := f.user(t, "h@example.org", domain.RoleHospital)
	individual := f.user(t, "i@example.org", domain.RoleIndividual)
	admin := f.user(t, "a@example.org", domain.RoleAdmin)

	req, err := f.svc.CreateEmergency(ctx, requester.Email, domain.EmergencyInput{Message: "Mass casualty event"})
	require.NoError(t, err)
	assert.Equal(t, domain.RequestEmergency, req.Kind)
	assert.Equal(t, domain.UrgencyCritical, req.Urgency)
	assert.Zero(t, req.Units)

	for _, email := range []string{individual.Email, admin.Email} {
		inbox := f.inbox(t, email)
		require.Len(t, inbox, 1)
		assert.Equal(t, domain.NotifEmergency, inbox[0].Type)
		assert.Equal(t, "Mass casualty event", inbox[0].Message)
		assert.Equal(t, domain.NotApplicable, inbox[0].BloodType)
	}
	assert.Empty(t, f.inbox(t, requester.Email))

	_, err = f.svc.CreateEmergency(ctx, requester.Email, domain.EmergencyInput{Message: "  "})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestComplete(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	requester := f.user(t, "q@example.org", domain.RoleIndividual)
	donor := f.user(t, "d@example.org", domain.RoleDonor)
	req, err := f.svc.CreateBroadcast(ctx, requester.Email, broadcastInput())
	require.NoError(t, err)

	_, err = f.svc.Complete(ctx, req.ID, requester.Email)
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = f.svc.Accept(ctx, req.ID, donor.Email)
	require.NoError(t, err)

	_, err = f.svc.Complete(ctx, req.ID, donor.Email)
	assert.ErrorIs(t, err, domain.ErrPermission)

	done, err := f.svc.Complete(ctx, req.ID, requester.Email)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestFulfilled, done.Status)
}

func TestCancel_WhileInProgress(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	requester := f.user(t, "q@example.org", domain.RoleIndividual)
	donor := f.user(t, "d@example.org", domain.RoleDonor)
	bystander := f.user(t, "h@example.org", domain.RoleHospital)
	req, err := f.svc.CreateBroadcast(ctx, requester.Email, broadcastInput())
	require.NoError(t, err)
	_, err = f.svc.Accept(ctx, req.ID, donor.Email)
	require.NoError(t, err)

	require.NoError(t, f.svc.Cancel(ctx, req.ID, requester.Email))

	_, err = f.svc.GetByID(ctx, req.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, f.inbox(t, requester.Email))
	assert.Empty(t, f.inbox(t, bystander.Email))
}

func TestCancel_Permissions(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	requester := f.user(t, "q@example.org", domain.RoleIndividual)
	donor := f.user(t, "d@example.org", domain.RoleDonor)
	admin := f.user(t, "a@example.org", domain.RoleAdmin)
	req, err := f.svc.CreateBroadcast(ctx, requester.Email, broadcastInput())
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Cancel(ctx, req.ID, donor.Email), domain.ErrPermission)
	require.NoError(t, f.svc.Cancel(ctx, req.ID, admin.Email))
	assert.ErrorIs(t, f.svc.Cancel(ctx, req.ID, admin.Email), domain.ErrNotFound)
}

func TestCompleteAndCancel_BannedRequester(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	requester := f.user(t, "q@example.org", domain.RoleIndividual)
	donor := f.user(t, "d@example.org", domain.RoleDonor)
	req, err := f.svc.CreateBroadcast(ctx, requester.Email, broadcastInput())
	require.NoError(t, err)
	_, err = f.svc.Accept(ctx, req.ID, donor.Email)
	require.NoError(t, err)

	require.NoError(t, f.repos.User.SetStatus(ctx, requester.Email, domain.UserBanned))

	_, err = f.svc.Complete(ctx, req.ID, requester.Email)
	assert.ErrorIs(t, err, domain.ErrPermission)
	assert.ErrorIs(t, f.svc.Cancel(ctx, req.ID, requester.Email), domain.ErrPermission)

	stored, err := f.svc.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestInProgress, stored.Status)
}

func TestList_FiltersByStatus(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	requester := f.user(t, "q@example.org", domain.RoleIndividual)
	donor := f.user(t, "d@example.org", domain.RoleDonor)
	first, err := f.svc.CreateBroadcast(ctx, requester.Email, broadcastInput())
	require.NoError(t, err)
	_, err = f.svc.CreateBroadcast(ctx, requester.Email, broadcastInput())
	require.NoError(t, err)
	_, err = f.svc.Accept(ctx, first.ID, donor.Email)
	require.NoError(t, err)

	pending := domain.RequestPending
	page, err := f.svc.List(ctx, domain.RequestFilter{RequesterEmail: requester.Email, Status: &pending}, domain.DefaultPagination())
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.TotalItems)

	page, err = f.svc.List(ctx, domain.RequestFilter{ResponderEmail: donor.Email}, domain.DefaultPagination())
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, first.ID, page.Data[0].ID)

	bogus := domain.RequestStatus("Lost")
	_, err = f.svc.List(ctx, domain.RequestFilter{Status: &bogus}, domain.DefaultPagination())
	assert.ErrorIs(t, err, domain.ErrValidation)
}
