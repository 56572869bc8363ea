package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rgalymov/gameclub-backend/models"
)

const (
	testOwnerID  = 1
	testAdminID  = 2
	testMemberID = 3
	testMember2  = 4
	outsiderID   = 99
)

type roundTestEnv struct {
	svc         RoundService
	clubs       *fakeClubRepo
	members     *fakeMemberRepo
	rounds      *fakeRoundRepo
	nominations *fakeNominationRepo
	votes       *fakeVoteRepo
	reviews     *fakeReviewRepo
	games       *fakeGameRepo
	notifier    *fakeNotifier
	clubID      int
}

func newRoundTestEnv(t *testing.T) *roundTestEnv {
	t.Helper()
	ctx := context.Background()

	clubs := newFakeClubRepo()
	members := newFakeMemberRepo()
	rounds := newFakeRoundRepo()
	votes := newFakeVoteRepo()
	reviews := newFakeReviewRepo()
	games := newFakeGameRepo(
		&models.Game{ID: 10, Title: "Outer Wilds"},
		&models.Game{ID: 11, Title: "Hades"},
		&models.Game{ID: 12, Title: "Celeste"},
	)
	nominations := newFakeNominationRepo(votes, games)
	notifier := &fakeNotifier{}

	club := &models.Club{Name: "Backlog Busters", Visibility: models.VisibilityPublic, OwnerID: testOwnerID}
	if err := clubs.Create(ctx, nil, club); err != nil {
		t.Fatalf("failed to seed club: %v", err)
	}
	seed := []struct {
		userID int
		role   models.MemberRole
	}{
		{testOwnerID, models.RoleOwner},
		{testAdminID, models.RoleAdmin},
		{testMemberID, models.RoleMember},
		{testMember2, models.RoleMember},
	}
	for _, m := range seed {
		if err := members.Create(ctx, nil, &models.Member{ClubID: club.ID, UserID: m.userID, Role: m.role}); err != nil {
			t.Fatalf("failed to seed member %d: %v", m.userID, err)
		}
	}

	svc := NewRoundService(nil, rounds, clubs, members, nominations, votes, reviews, games, notifier, nil)
	return &roundTestEnv{
		svc:         svc,
		clubs:       clubs,
		members:     members,
		rounds:      rounds,
		nominations: nominations,
		votes:       votes,
		reviews:     reviews,
		games:       games,
		notifier:    notifier,
		clubID:      club.ID,
	}
}

func (e *roundTestEnv) mustCreateRound(t *testing.T) *models.Round {
	t.Helper()
	round, err := e.svc.CreateRound(context.Background(), e.clubID, testAdminID, CreateRoundInput{})
	if err != nil {
		t.Fatalf("CreateRound returned error: %v", err)
	}
	return round
}

func (e *roundTestEnv) mustAdvance(t *testing.T, roundID int) *models.Round {
	t.Helper()
	round, err := e.svc.AdvanceRound(context.Background(), roundID, testAdminID)
	if err != nil {
		t.Fatalf("AdvanceRound returned error: %v", err)
	}
	return round
}

func TestCreateRound_SecondActiveRoundConflicts(t *testing.T) {
	env := newRoundTestEnv(t)
	env.mustCreateRound(t)

	if _, err := env.svc.CreateRound(context.Background(), env.clubID, testAdminID, CreateRoundInput{}); !errors.Is(err, ErrActiveRoundConflict) {
		t.Fatalf("Expected ErrActiveRoundConflict, got %v", err)
	}
}

func TestCreateRound_MemberForbidden(t *testing.T) {
	env := newRoundTestEnv(t)

	if _, err := env.svc.CreateRound(context.Background(), env.clubID, testMemberID, CreateRoundInput{}); !errors.Is(err, ErrAdminRoleRequired) {
		t.Fatalf("Expected ErrAdminRoleRequired, got %v", err)
	}
	if _, err := env.svc.CreateRound(context.Background(), env.clubID, outsiderID, CreateRoundInput{}); !errors.Is(err, ErrNotClubMember) {
		t.Fatalf("Expected ErrNotClubMember for outsider, got %v", err)
	}
}

func TestCreateRound_NumbersAreSequential(t *testing.T) {
	env := newRoundTestEnv(t)
	ctx := context.Background()

	first := env.mustCreateRound(t)
	if first.Number != 1 {
		t.Fatalf("Expected first round number 1, got %d", first.Number)
	}

	// Прогоняем первый раунд до конца, чтобы открыть место второму.
	if _, err := env.svc.Nominate(ctx, first.ID, testMemberID, 10); err != nil {
		t.Fatalf("Nominate returned error: %v", err)
	}
	env.mustAdvance(t, first.ID) // voting
	env.mustAdvance(t, first.ID) // playing
	env.mustAdvance(t, first.ID) // reviewing
	env.mustAdvance(t, first.ID) // completed

	second := env.mustCreateRound(t)
	if second.Number != 2 {
		t.Fatalf("Expected second round number 2, got %d", second.Number)
	}
}

func TestRoundLifecycle_FullCycle(t *testing.T) {
	env := newRoundTestEnv(t)
	ctx := context.Background()
	round := env.mustCreateRound(t)

	if round.Status != models.RoundNominating {
		t.Fatalf("Expected new round in nominating, got %s", round.Status)
	}

	if _, err := env.svc.Nominate(ctx, round.ID, testMemberID, 10); err != nil {
		t.Fatalf("Nominate returned error: %v", err)
	}
	if _, err := env.svc.Nominate(ctx, round.ID, testMember2, 11); err != nil {
		t.Fatalf("Nominate returned error: %v", err)
	}

	round = env.mustAdvance(t, round.ID)
	if round.Status != models.RoundVoting {
		t.Fatalf("Expected voting, got %s", round.Status)
	}

	// Две против одного: побеждает игра 11.
	for _, userID := range []int{testOwnerID, testAdminID} {
		if _, err := env.svc.Vote(ctx, round.ID, userID, 2); err != nil {
			t.Fatalf("Vote returned error: %v", err)
		}
	}
	if _, err := env.svc.Vote(ctx, round.ID, testMemberID, 1); err != nil {
		t.Fatalf("Vote returned error: %v", err)
	}

	round = env.mustAdvance(t, round.ID)
	if round.Status != models.RoundPlaying {
		t.Fatalf("Expected playing, got %s", round.Status)
	}
	if round.GameID == nil || *round.GameID != 11 {
		t.Fatalf("Expected winning game 11, got %v", round.GameID)
	}

	round = env.mustAdvance(t, round.ID)
	if round.Status != models.RoundReviewing {
		t.Fatalf("Expected reviewing, got %s", round.Status)
	}

	scores := map[int]int{testOwnerID: 80, testAdminID: 60, testMemberID: 70}
	for userID, score := range scores {
		if _, err := env.svc.SubmitReview(ctx, round.ID, userID, score, nil); err != nil {
			t.Fatalf("SubmitReview returned error: %v", err)
		}
	}

	round = env.mustAdvance(t, round.ID)
	if round.Status != models.RoundCompleted {
		t.Fatalf("Expected completed, got %s", round.Status)
	}
	if round.CompletedAt == nil {
		t.Fatal("Expected completed_at to be stamped")
	}
	if round.AverageScore == nil || *round.AverageScore != 70.0 {
		t.Fatalf("Expected average score 70.0, got %v", round.AverageScore)
	}
}

func TestAdvanceRound_TieBreakByEarliestNomination(t *testing.T) {
	env := newRoundTestEnv(t)
	ctx := context.Background()
	round := env.mustCreateRound(t)

	// Номинации с явными created_at: первая — раньше.
	early := &models.Nomination{RoundID: round.ID, GameID: 10, UserID: testMemberID, CreatedAt: time.Now().Add(-time.Hour)}
	late := &models.Nomination{RoundID: round.ID, GameID: 11, UserID: testMember2, CreatedAt: time.Now()}
	if err := env.nominations.Create(ctx, early); err != nil {
		t.Fatalf("failed to seed nomination: %v", err)
	}
	if err := env.nominations.Create(ctx, late); err != nil {
		t.Fatalf("failed to seed nomination: %v", err)
	}

	env.mustAdvance(t, round.ID) // voting

	// По одному голосу каждой — ничья.
	if _, err := env.svc.Vote(ctx, round.ID, testMemberID, early.ID); err != nil {
		t.Fatalf("Vote returned error: %v", err)
	}
	if _, err := env.svc.Vote(ctx, round.ID, testMember2, late.ID); err != nil {
		t.Fatalf("Vote returned error: %v", err)
	}

	round = env.mustAdvance(t, round.ID)
	if round.GameID == nil || *round.GameID != early.GameID {
		t.Fatalf("Expected earliest nomination (game %d) to win the tie, got %v", early.GameID, round.GameID)
	}
}

func TestAdvanceRound_NoNominations(t *testing.T) {
	env := newRoundTestEnv(t)
	round := env.mustCreateRound(t)

	if _, err := env.svc.AdvanceRound(context.Background(), round.ID, testAdminID); !errors.Is(err, ErrRoundNoNominations) {
		t.Fatalf("Expected ErrRoundNoNominations, got %v", err)
	}

	got, err := env.rounds.GetByID(context.Background(), round.ID)
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if got.Status != models.RoundNominating {
		t.Fatalf("Expected round to stay nominating, got %s", got.Status)
	}
}

func TestAdvanceRound_VotingWithZeroVotesStillPicksWinner(t *testing.T) {
	env := newRoundTestEnv(t)
	ctx := context.Background()
	round := env.mustCreateRound(t)

	if _, err := env.svc.Nominate(ctx, round.ID, testMemberID, 10); err != nil {
		t.Fatalf("Nominate returned error: %v", err)
	}
	env.mustAdvance(t, round.ID) // voting

	round = env.mustAdvance(t, round.ID) // playing без единого голоса
	if round.Status != models.RoundPlaying {
		t.Fatalf("Expected playing, got %s", round.Status)
	}
	if round.GameID == nil || *round.GameID != 10 {
		t.Fatalf("Expected the only nomination to win, got %v", round.GameID)
	}
}

func TestAdvanceRound_MemberForbidden(t *testing.T) {
	env := newRoundTestEnv(t)
	round := env.mustCreateRound(t)

	if _, err := env.svc.AdvanceRound(context.Background(), round.ID, testMemberID); !errors.Is(err, ErrAdminRoleRequired) {
		t.Fatalf("Expected ErrAdminRoleRequired, got %v", err)
	}
}

func TestAdvanceRound_CompletedIsTerminal(t *testing.T) {
	env := newRoundTestEnv(t)
	ctx := context.Background()
	round := env.mustCreateRound(t)

	if _, err := env.svc.Nominate(ctx, round.ID, testMemberID, 10); err != nil {
		t.Fatalf("Nominate returned error: %v", err)
	}
	env.mustAdvance(t, round.ID)
	env.mustAdvance(t, round.ID)
	env.mustAdvance(t, round.ID)
	env.mustAdvance(t, round.ID)

	if _, err := env.svc.AdvanceRound(ctx, round.ID, testAdminID); !errors.Is(err, ErrRoundAlreadyCompleted) {
		t.Fatalf("Expected ErrRoundAlreadyCompleted, got %v", err)
	}
}

func TestNominate_WrongPhase(t *testing.T) {
	env := newRoundTestEnv(t)
	ctx := context.Background()
	round := env.mustCreateRound(t)

	if _, err := env.svc.Nominate(ctx, round.ID, testMemberID, 10); err != nil {
		t.Fatalf("Nominate returned error: %v", err)
	}
	env.mustAdvance(t, round.ID) // voting

	if _, err := env.svc.Nominate(ctx, round.ID, testMember2, 11); !errors.Is(err, ErrRoundWrongPhase) {
		t.Fatalf("Expected ErrRoundWrongPhase, got %v", err)
	}
}

func TestNominate_DuplicateGameConflicts(t *testing.T) {
	env := newRoundTestEnv(t)
	ctx := context.Background()
	round := env.mustCreateRound(t)

	if _, err := env.svc.Nominate(ctx, round.ID, testMemberID, 10); err != nil {
		t.Fatalf("Nominate returned error: %v", err)
	}
	if _, err := env.svc.Nominate(ctx, round.ID, testMember2, 10); !errors.Is(err, ErrNominationConflict) {
		t.Fatalf("Expected ErrNominationConflict, got %v", err)
	}
}

func TestNominate_UnknownGame(t *testing.T) {
	env := newRoundTestEnv(t)
	round := env.mustCreateRound(t)

	if _, err := env.svc.Nominate(context.Background(), round.ID, testMemberID, 777); !errors.Is(err, ErrGameNotFound) {
		t.Fatalf("Expected ErrGameNotFound, got %v", err)
	}
}

func TestVote_RevoteKeepsSingleRow(t *testing.T) {
	env := newRoundTestEnv(t)
	ctx := context.Background()
	round := env.mustCreateRound(t)

	if _, err := env.svc.Nominate(ctx, round.ID, testMemberID, 10); err != nil {
		t.Fatalf("Nominate returned error: %v", err)
	}
	if _, err := env.svc.Nominate(ctx, round.ID, testMember2, 11); err != nil {
		t.Fatalf("Nominate returned error: %v", err)
	}
	env.mustAdvance(t, round.ID) // voting

	first, err := env.svc.Vote(ctx, round.ID, testMemberID, 1)
	if err != nil {
		t.Fatalf("Vote returned error: %v", err)
	}
	second, err := env.svc.Vote(ctx, round.ID, testMemberID, 2)
	if err != nil {
		t.Fatalf("Revote returned error: %v", err)
	}

	if first.ID != second.ID {
		t.Fatalf("Expected revote to reuse vote row %d, got %d", first.ID, second.ID)
	}
	if len(env.votes.votes) != 1 {
		t.Fatalf("Expected exactly 1 vote row, got %d", len(env.votes.votes))
	}
	if second.NominationID != 2 {
		t.Fatalf("Expected vote to point at nomination 2, got %d", second.NominationID)
	}
}

func TestVote_NominationFromAnotherRound(t *testing.T) {
	env := newRoundTestEnv(t)
	ctx := context.Background()
	round := env.mustCreateRound(t)

	if _, err := env.svc.Nominate(ctx, round.ID, testMemberID, 10); err != nil {
		t.Fatalf("Nominate returned error: %v", err)
	}
	// Номинация чужого раунда.
	foreign := &models.Nomination{RoundID: round.ID + 100, GameID: 12, UserID: testMember2}
	if err := env.nominations.Create(ctx, foreign); err != nil {
		t.Fatalf("failed to seed nomination: %v", err)
	}
	env.mustAdvance(t, round.ID) // voting

	if _, err := env.svc.Vote(ctx, round.ID, testMemberID, foreign.ID); !errors.Is(err, ErrNominationNotFound) {
		t.Fatalf("Expected ErrNominationNotFound, got %v", err)
	}
}

func TestVote_WrongPhase(t *testing.T) {
	env := newRoundTestEnv(t)
	ctx := context.Background()
	round := env.mustCreateRound(t)

	if _, err := env.svc.Nominate(ctx, round.ID, testMemberID, 10); err != nil {
		t.Fatalf("Nominate returned error: %v", err)
	}

	if _, err := env.svc.Vote(ctx, round.ID, testMemberID, 1); !errors.Is(err, ErrRoundWrongPhase) {
		t.Fatalf("Expected ErrRoundWrongPhase while nominating, got %v", err)
	}
}

func TestSubmitReview_ScoreOutOfRangeBeatsPhaseCheck(t *testing.T) {
	env := newRoundTestEnv(t)
	ctx := context.Background()
	round := env.mustCreateRound(t)

	// Раунд в nominating, но диапазон проверяется первым.
	if _, err := env.svc.SubmitReview(ctx, round.ID, testMemberID, 150, nil); !errors.Is(err, ErrScoreOutOfRange) {
		t.Fatalf("Expected ErrScoreOutOfRange, got %v", err)
	}
	if _, err := env.svc.SubmitReview(ctx, round.ID, testMemberID, -1, nil); !errors.Is(err, ErrScoreOutOfRange) {
		t.Fatalf("Expected ErrScoreOutOfRange for negative score, got %v", err)
	}
}

func TestSubmitReview_ResubmitOverwrites(t *testing.T) {
	env := newRoundTestEnv(t)
	ctx := context.Background()
	round := env.mustCreateRound(t)

	if _, err := env.svc.Nominate(ctx, round.ID, testMemberID, 10); err != nil {
		t.Fatalf("Nominate returned error: %v", err)
	}
	env.mustAdvance(t, round.ID)
	env.mustAdvance(t, round.ID)
	env.mustAdvance(t, round.ID) // reviewing

	first, err := env.svc.SubmitReview(ctx, round.ID, testMemberID, 40, nil)
	if err != nil {
		t.Fatalf("SubmitReview returned error: %v", err)
	}
	comment := "grew on me"
	second, err := env.svc.SubmitReview(ctx, round.ID, testMemberID, 90, &comment)
	if err != nil {
		t.Fatalf("Resubmit returned error: %v", err)
	}

	if first.ID != second.ID {
		t.Fatalf("Expected resubmit to reuse review row %d, got %d", first.ID, second.ID)
	}
	if len(env.reviews.reviews) != 1 {
		t.Fatalf("Expected exactly 1 review row, got %d", len(env.reviews.reviews))
	}
	if second.Score != 90 || second.Comment == nil || *second.Comment != comment {
		t.Fatalf("Expected overwritten review, got score=%d comment=%v", second.Score, second.Comment)
	}
}

func TestSubmitReview_WrongPhase(t *testing.T) {
	env := newRoundTestEnv(t)
	ctx := context.Background()
	round := env.mustCreateRound(t)

	if _, err := env.svc.Nominate(ctx, round.ID, testMemberID, 10); err != nil {
		t.Fatalf("Nominate returned error: %v", err)
	}
	env.mustAdvance(t, round.ID) // voting

	if _, err := env.svc.SubmitReview(ctx, round.ID, testMemberID, 50, nil); !errors.Is(err, ErrRoundWrongPhase) {
		t.Fatalf("Expected ErrRoundWrongPhase, got %v", err)
	}
}

func TestRoundLifecycle_NotificationsFanOut(t *testing.T) {
	env := newRoundTestEnv(t)
	ctx := context.Background()
	round := env.mustCreateRound(t)

	// Инициатор (админ) исключён: owner + 2 members.
	started := env.notifier.callsOfType(models.NotificationRoundStarted)
	if len(started) != 3 {
		t.Fatalf("Expected 3 round_started notifications, got %d", len(started))
	}
	for _, c := range started {
		if c.userID == testAdminID {
			t.Fatal("Initiator must not be notified")
		}
		if c.roundID == nil || *c.roundID != round.ID {
			t.Fatalf("Expected notification bound to round %d, got %v", round.ID, c.roundID)
		}
	}

	if _, err := env.svc.Nominate(ctx, round.ID, testMemberID, 11); err != nil {
		t.Fatalf("Nominate returned error: %v", err)
	}
	env.mustAdvance(t, round.ID) // voting
	env.mustAdvance(t, round.ID) // playing

	selected := env.notifier.callsOfType(models.NotificationGameSelected)
	if len(selected) != 3 {
		t.Fatalf("Expected 3 game_selected notifications, got %d", len(selected))
	}
	for _, c := range selected {
		if !strings.Contains(c.message, "Hades") {
			t.Fatalf("Expected winning game title in message, got %q", c.message)
		}
	}
}

func TestGetRoundDetail_PopulatesCountsAndAverage(t *testing.T) {
	env := newRoundTestEnv(t)
	ctx := context.Background()
	round := env.mustCreateRound(t)

	if _, err := env.svc.Nominate(ctx, round.ID, testMemberID, 10); err != nil {
		t.Fatalf("Nominate returned error: %v", err)
	}
	if _, err := env.svc.Nominate(ctx, round.ID, testMember2, 11); err != nil {
		t.Fatalf("Nominate returned error: %v", err)
	}
	env.mustAdvance(t, round.ID) // voting
	if _, err := env.svc.Vote(ctx, round.ID, testOwnerID, 1); err != nil {
		t.Fatalf("Vote returned error: %v", err)
	}
	if _, err := env.svc.Vote(ctx, round.ID, testAdminID, 1); err != nil {
		t.Fatalf("Vote returned error: %v", err)
	}

	detail, err := env.svc.GetRoundDetail(ctx, round.ID)
	if err != nil {
		t.Fatalf("GetRoundDetail returned error: %v", err)
	}
	if len(detail.Nominations) != 2 {
		t.Fatalf("Expected 2 nominations, got %d", len(detail.Nominations))
	}
	counts := map[int]int{}
	for _, n := range detail.Nominations {
		counts[n.ID] = n.VoteCount
	}
	if counts[1] != 2 || counts[2] != 0 {
		t.Fatalf("Expected live vote counts {1:2, 2:0}, got %v", counts)
	}
}
