package services

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/rgalymov/gameclub-backend/models"
	"github.com/rgalymov/gameclub-backend/repositories"
	"github.com/rgalymov/gameclub-backend/storage"
)

// In-memory фейки репозиториев. Конфликты уникальности воспроизводятся
// теми же sentinel-ошибками, что и у postgres-реализаций.

type fakeClubRepo struct {
	nextID int
	clubs  map[int]*models.Club
}

func newFakeClubRepo() *fakeClubRepo {
	return &fakeClubRepo{nextID: 1, clubs: make(map[int]*models.Club)}
}

func (f *fakeClubRepo) Create(ctx context.Context, exec repositories.SQLExecutor, club *models.Club) error {
	club.ID = f.nextID
	f.nextID++
	club.CreatedAt = time.Now()
	cp := *club
	f.clubs[club.ID] = &cp
	return nil
}

func (f *fakeClubRepo) GetByID(ctx context.Context, id int) (*models.Club, error) {
	club, ok := f.clubs[id]
	if !ok {
		return nil, repositories.ErrClubNotFound
	}
	cp := *club
	return &cp, nil
}

func (f *fakeClubRepo) List(ctx context.Context, filter repositories.ListClubsFilter) ([]models.Club, error) {
	var out []models.Club
	for _, club := range f.clubs {
		if filter.Visibility != nil && club.Visibility != *filter.Visibility {
			continue
		}
		out = append(out, *club)
	}
	return out, nil
}

func (f *fakeClubRepo) Update(ctx context.Context, club *models.Club) error {
	if _, ok := f.clubs[club.ID]; !ok {
		return repositories.ErrClubNotFound
	}
	cp := *club
	f.clubs[club.ID] = &cp
	return nil
}

func (f *fakeClubRepo) UpdateCoverKey(ctx context.Context, clubID int, coverKey *string) error {
	club, ok := f.clubs[clubID]
	if !ok {
		return repositories.ErrClubNotFound
	}
	club.CoverKey = coverKey
	return nil
}

func (f *fakeClubRepo) Delete(ctx context.Context, id int) error {
	if _, ok := f.clubs[id]; !ok {
		return repositories.ErrClubNotFound
	}
	delete(f.clubs, id)
	return nil
}

type fakeMemberRepo struct {
	nextID  int
	members map[int]*models.Member // по ID
}

func newFakeMemberRepo() *fakeMemberRepo {
	return &fakeMemberRepo{nextID: 1, members: make(map[int]*models.Member)}
}

func (f *fakeMemberRepo) find(clubID, userID int) *models.Member {
	for _, m := range f.members {
		if m.ClubID == clubID && m.UserID == userID {
			return m
		}
	}
	return nil
}

func (f *fakeMemberRepo) Create(ctx context.Context, exec repositories.SQLExecutor, member *models.Member) error {
	if f.find(member.ClubID, member.UserID) != nil {
		return repositories.ErrMemberConflict
	}
	member.ID = f.nextID
	f.nextID++
	member.JoinedAt = time.Now()
	cp := *member
	f.members[member.ID] = &cp
	return nil
}

func (f *fakeMemberRepo) CreateIfAbsent(ctx context.Context, exec repositories.SQLExecutor, member *models.Member) (bool, error) {
	if f.find(member.ClubID, member.UserID) != nil {
		return false, nil
	}
	return true, f.Create(ctx, exec, member)
}

func (f *fakeMemberRepo) GetByClubAndUser(ctx context.Context, clubID, userID int) (*models.Member, error) {
	m := f.find(clubID, userID)
	if m == nil {
		return nil, repositories.ErrMemberNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *fakeMemberRepo) ListByClub(ctx context.Context, clubID int) ([]*models.Member, error) {
	var out []*models.Member
	for _, m := range f.members {
		if m.ClubID == clubID {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeMemberRepo) UpdateRole(ctx context.Context, exec repositories.SQLExecutor, clubID, userID int, role models.MemberRole) error {
	m := f.find(clubID, userID)
	if m == nil {
		return repositories.ErrMemberNotFound
	}
	m.Role = role
	return nil
}

func (f *fakeMemberRepo) Delete(ctx context.Context, clubID, userID int) error {
	m := f.find(clubID, userID)
	if m == nil {
		return repositories.ErrMemberNotFound
	}
	delete(f.members, m.ID)
	return nil
}

type fakeRoundRepo struct {
	nextID int
	rounds map[int]*models.Round
}

func newFakeRoundRepo() *fakeRoundRepo {
	return &fakeRoundRepo{nextID: 1, rounds: make(map[int]*models.Round)}
}

func (f *fakeRoundRepo) Create(ctx context.Context, exec repositories.SQLExecutor, round *models.Round) error {
	number := 0
	for _, r := range f.rounds {
		if r.ClubID == round.ClubID {
			if !r.Status.Terminal() {
				return repositories.ErrRoundActiveConflict
			}
			if r.Number > number {
				number = r.Number
			}
		}
	}
	round.ID = f.nextID
	f.nextID++
	round.Number = number + 1
	round.CreatedAt = time.Now()
	cp := *round
	f.rounds[round.ID] = &cp
	return nil
}

func (f *fakeRoundRepo) GetByID(ctx context.Context, id int) (*models.Round, error) {
	r, ok := f.rounds[id]
	if !ok {
		return nil, repositories.ErrRoundNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRoundRepo) GetActiveByClub(ctx context.Context, clubID int) (*models.Round, error) {
	for _, r := range f.rounds {
		if r.ClubID == clubID && !r.Status.Terminal() {
			cp := *r
			return &cp, nil
		}
	}
	return nil, repositories.ErrRoundNotFound
}

func (f *fakeRoundRepo) ListByClub(ctx context.Context, clubID int) ([]models.Round, error) {
	var out []models.Round
	for _, r := range f.rounds {
		if r.ClubID == clubID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeRoundRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id int, status models.RoundStatus) error {
	r, ok := f.rounds[id]
	if !ok {
		return repositories.ErrRoundNotFound
	}
	r.Status = status
	return nil
}

func (f *fakeRoundRepo) SetGame(ctx context.Context, exec repositories.SQLExecutor, id int, gameID int) error {
	r, ok := f.rounds[id]
	if !ok {
		return repositories.ErrRoundNotFound
	}
	g := gameID
	r.GameID = &g
	return nil
}

func (f *fakeRoundRepo) SetCompletedAt(ctx context.Context, exec repositories.SQLExecutor, id int, completedAt time.Time) error {
	r, ok := f.rounds[id]
	if !ok {
		return repositories.ErrRoundNotFound
	}
	t := completedAt
	r.CompletedAt = &t
	return nil
}

type fakeNominationRepo struct {
	nextID      int
	nominations map[int]*models.Nomination
	votes       *fakeVoteRepo // для живого подсчёта голосов
	games       *fakeGameRepo // ListByRound в postgres-версии джойнит games
}

func newFakeNominationRepo(votes *fakeVoteRepo, games *fakeGameRepo) *fakeNominationRepo {
	return &fakeNominationRepo{nextID: 1, nominations: make(map[int]*models.Nomination), votes: votes, games: games}
}

func (f *fakeNominationRepo) Create(ctx context.Context, nomination *models.Nomination) error {
	for _, n := range f.nominations {
		if n.RoundID == nomination.RoundID && n.GameID == nomination.GameID {
			return repositories.ErrNominationConflict
		}
	}
	nomination.ID = f.nextID
	f.nextID++
	if nomination.CreatedAt.IsZero() {
		nomination.CreatedAt = time.Now()
	}
	cp := *nomination
	f.nominations[nomination.ID] = &cp
	return nil
}

func (f *fakeNominationRepo) GetByID(ctx context.Context, id int) (*models.Nomination, error) {
	n, ok := f.nominations[id]
	if !ok {
		return nil, repositories.ErrNominationNotFound
	}
	cp := *n
	return &cp, nil
}

func (f *fakeNominationRepo) ListByRound(ctx context.Context, roundID int) ([]*models.Nomination, error) {
	var out []*models.Nomination
	for _, n := range f.nominations {
		if n.RoundID != roundID {
			continue
		}
		cp := *n
		if f.votes != nil {
			cp.VoteCount = f.votes.countByNomination(n.ID)
		}
		if f.games != nil {
			if g, ok := f.games.games[n.GameID]; ok {
				gc := *g
				cp.Game = &gc
			}
		}
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeNominationRepo) CountByRound(ctx context.Context, roundID int) (int, error) {
	count := 0
	for _, n := range f.nominations {
		if n.RoundID == roundID {
			count++
		}
	}
	return count, nil
}

type fakeVoteRepo struct {
	nextID int
	votes  map[int]*models.Vote
}

func newFakeVoteRepo() *fakeVoteRepo {
	return &fakeVoteRepo{nextID: 1, votes: make(map[int]*models.Vote)}
}

func (f *fakeVoteRepo) countByNomination(nominationID int) int {
	count := 0
	for _, v := range f.votes {
		if v.NominationID == nominationID {
			count++
		}
	}
	return count
}

func (f *fakeVoteRepo) Create(ctx context.Context, vote *models.Vote) error {
	for _, v := range f.votes {
		if v.RoundID == vote.RoundID && v.UserID == vote.UserID {
			return repositories.ErrVoteConflict
		}
	}
	vote.ID = f.nextID
	f.nextID++
	vote.CreatedAt = time.Now()
	vote.UpdatedAt = vote.CreatedAt
	cp := *vote
	f.votes[vote.ID] = &cp
	return nil
}

func (f *fakeVoteRepo) GetByRoundAndUser(ctx context.Context, roundID, userID int) (*models.Vote, error) {
	for _, v := range f.votes {
		if v.RoundID == roundID && v.UserID == userID {
			cp := *v
			return &cp, nil
		}
	}
	return nil, repositories.ErrVoteNotFound
}

func (f *fakeVoteRepo) UpdateNomination(ctx context.Context, voteID, nominationID int) error {
	v, ok := f.votes[voteID]
	if !ok {
		return repositories.ErrVoteNotFound
	}
	v.NominationID = nominationID
	v.UpdatedAt = time.Now()
	return nil
}

func (f *fakeVoteRepo) ListByRound(ctx context.Context, roundID int) ([]models.Vote, error) {
	var out []models.Vote
	for _, v := range f.votes {
		if v.RoundID == roundID {
			out = append(out, *v)
		}
	}
	return out, nil
}

type fakeReviewRepo struct {
	nextID  int
	reviews map[int]*models.Review
}

func newFakeReviewRepo() *fakeReviewRepo {
	return &fakeReviewRepo{nextID: 1, reviews: make(map[int]*models.Review)}
}

func (f *fakeReviewRepo) Create(ctx context.Context, review *models.Review) error {
	for _, r := range f.reviews {
		if r.RoundID == review.RoundID && r.UserID == review.UserID {
			return repositories.ErrReviewConflict
		}
	}
	review.ID = f.nextID
	f.nextID++
	review.SubmittedAt = time.Now()
	cp := *review
	f.reviews[review.ID] = &cp
	return nil
}

func (f *fakeReviewRepo) GetByRoundAndUser(ctx context.Context, roundID, userID int) (*models.Review, error) {
	for _, r := range f.reviews {
		if r.RoundID == roundID && r.UserID == userID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, repositories.ErrReviewNotFound
}

func (f *fakeReviewRepo) Update(ctx context.Context, review *models.Review) error {
	r, ok := f.reviews[review.ID]
	if !ok {
		return repositories.ErrReviewNotFound
	}
	r.Score = review.Score
	r.Comment = review.Comment
	r.SubmittedAt = time.Now()
	return nil
}

func (f *fakeReviewRepo) ListByRound(ctx context.Context, roundID int) ([]models.Review, error) {
	var out []models.Review
	for _, r := range f.reviews {
		if r.RoundID == roundID {
			out = append(out, *r)
		}
	}
	return out, nil
}

type fakeGameRepo struct {
	games map[int]*models.Game
}

func newFakeGameRepo(games ...*models.Game) *fakeGameRepo {
	f := &fakeGameRepo{games: make(map[int]*models.Game)}
	for _, g := range games {
		f.games[g.ID] = g
	}
	return f
}

func (f *fakeGameRepo) GetByID(ctx context.Context, id int) (*models.Game, error) {
	g, ok := f.games[id]
	if !ok {
		return nil, repositories.ErrGameNotFound
	}
	cp := *g
	return &cp, nil
}

func (f *fakeGameRepo) Exists(ctx context.Context, id int) (bool, error) {
	_, ok := f.games[id]
	return ok, nil
}

func (f *fakeGameRepo) List(ctx context.Context, filter repositories.ListGamesFilter) ([]models.Game, error) {
	var out []models.Game
	for _, g := range f.games {
		if filter.Search != "" && !strings.Contains(strings.ToLower(g.Title), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, *g)
	}
	return out, nil
}

type fakeUserRepo struct {
	nextID int
	users  map[int]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{nextID: 1, users: make(map[int]*models.User)}
}

func (f *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	for _, u := range f.users {
		if u.Email == user.Email {
			return repositories.ErrUserEmailConflict
		}
		if u.Nickname == user.Nickname {
			return repositories.ErrUserNicknameConflict
		}
	}
	user.ID = f.nextID
	f.nextID++
	user.CreatedAt = time.Now()
	cp := *user
	f.users[user.ID] = &cp
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id int) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (f *fakeUserRepo) UpdateAvatarKey(ctx context.Context, userID int, avatarKey *string) error {
	u, ok := f.users[userID]
	if !ok {
		return repositories.ErrUserNotFound
	}
	u.AvatarKey = avatarKey
	return nil
}

type fakeUploader struct {
	uploads map[string]string // key -> content type
	deleted []string
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{uploads: make(map[string]string)}
}

func (f *fakeUploader) Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*storage.UploadResult, error) {
	f.uploads[key] = contentType
	return &storage.UploadResult{Key: key}, nil
}

func (f *fakeUploader) Delete(ctx context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	delete(f.uploads, key)
	return nil
}

func (f *fakeUploader) GetPublicURL(key string) string {
	return "https://cdn.test/" + key
}

type fakeInviteRepo struct {
	nextID  int
	invites map[int]*models.Invite
}

func newFakeInviteRepo() *fakeInviteRepo {
	return &fakeInviteRepo{nextID: 1, invites: make(map[int]*models.Invite)}
}

func (f *fakeInviteRepo) Create(ctx context.Context, invite *models.Invite) error {
	for _, i := range f.invites {
		if i.ClubID == invite.ClubID && i.InviteeID == invite.InviteeID && i.Status == models.InvitePending {
			return repositories.ErrInvitePendingConflict
		}
	}
	invite.ID = f.nextID
	f.nextID++
	invite.CreatedAt = time.Now()
	invite.UpdatedAt = invite.CreatedAt
	cp := *invite
	f.invites[invite.ID] = &cp
	return nil
}

func (f *fakeInviteRepo) GetByID(ctx context.Context, id int) (*models.Invite, error) {
	i, ok := f.invites[id]
	if !ok {
		return nil, repositories.ErrInviteNotFound
	}
	cp := *i
	return &cp, nil
}

func (f *fakeInviteRepo) GetPending(ctx context.Context, clubID, inviteeID int) (*models.Invite, error) {
	for _, i := range f.invites {
		if i.ClubID == clubID && i.InviteeID == inviteeID && i.Status == models.InvitePending {
			cp := *i
			return &cp, nil
		}
	}
	return nil, repositories.ErrInviteNotFound
}

func (f *fakeInviteRepo) ListPendingByInvitee(ctx context.Context, inviteeID int) ([]*models.Invite, error) {
	var out []*models.Invite
	for _, i := range f.invites {
		if i.InviteeID == inviteeID && i.Status == models.InvitePending {
			cp := *i
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeInviteRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id int, status models.InviteStatus) error {
	i, ok := f.invites[id]
	if !ok {
		return repositories.ErrInviteNotFound
	}
	i.Status = status
	i.UpdatedAt = time.Now()
	return nil
}

type notifyCall struct {
	userID  int
	ntype   models.NotificationType
	message string
	clubID  *int
	roundID *int
}

type fakeNotifier struct {
	calls []notifyCall
}

func (f *fakeNotifier) Notify(ctx context.Context, userID int, ntype models.NotificationType, message string, clubID, roundID *int) {
	f.calls = append(f.calls, notifyCall{userID: userID, ntype: ntype, message: message, clubID: clubID, roundID: roundID})
}

func (f *fakeNotifier) callsOfType(ntype models.NotificationType) []notifyCall {
	var out []notifyCall
	for _, c := range f.calls {
		if c.ntype == ntype {
			out = append(out, c)
		}
	}
	return out
}
