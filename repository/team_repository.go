package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cy119ua/DiscordBot-LS-BP-sub000/domain/entities"
	"github.com/cy119ua/DiscordBot-LS-BP-sub000/domain/interfaces"
)

// teamRepository implements interfaces.TeamRepository over the keyed store
type teamRepository struct {
	reader stagedReader
}

func newTeamRepository(store interfaces.KeyedStore, batch *entities.Batch) *teamRepository {
	return &teamRepository{reader: stagedReader{store: store, batch: batch}}
}

// GetByName returns the live team, or nil
func (r *teamRepository) GetByName(ctx context.Context, name string) (*entities.Team, error) {
	var team entities.Team
	version, found, err := r.reader.load(ctx, TeamKey(name), &team)
	if err != nil {
		return nil, fmt.Errorf("failed to get team: %w", err)
	}
	if !found {
		return nil, nil
	}
	if team.Bets == nil {
		team.Bets = []*entities.Bet{}
	}
	team.Version = version
	return &team, nil
}

// ListOpen returns the committed live teams ordered by key. It reads the store directly
// and registers no version checks, so it is meant for read-only callers.
func (r *teamRepository) ListOpen(ctx context.Context) ([]*entities.Team, error) {
	records, err := r.reader.store.List(ctx, TeamKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}

	teams := make([]*entities.Team, 0, len(records))
	for _, rec := range records {
		var team entities.Team
		if err := json.Unmarshal(rec.Value, &team); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", rec.Key, err)
		}
		if team.Bets == nil {
			team.Bets = []*entities.Bet{}
		}
		team.Version = rec.Version
		teams = append(teams, &team)
	}
	return teams, nil
}

// Save stages the live team
func (r *teamRepository) Save(ctx context.Context, team *entities.Team) error {
	return r.reader.stage(TeamKey(team.Name), team.Version, team)
}

// Delete stages removal of the live team
func (r *teamRepository) Delete(ctx context.Context, team *entities.Team) error {
	r.reader.batch.Delete(TeamKey(team.Name), team.Version)
	return nil
}

// Archive stages the resolved team under a fresh archive key and removes the live key
func (r *teamRepository) Archive(ctx context.Context, team *entities.Team) error {
	if team.ResolvedAt == nil {
		return fmt.Errorf("%w: team %s is not resolved", entities.ErrInvalidState, team.Name)
	}
	if err := r.reader.stage(ArchivedTeamKey(team.Name, *team.ResolvedAt), 0, team); err != nil {
		return err
	}
	r.reader.batch.Delete(TeamKey(team.Name), team.Version)
	return nil
}

// GetRoster returns the live team index, empty if no team was ever created
func (r *teamRepository) GetRoster(ctx context.Context) (*entities.TeamRoster, error) {
	roster := entities.NewTeamRoster()
	version, _, err := r.reader.load(ctx, RosterKey, roster)
	if err != nil {
		return nil, fmt.Errorf("failed to get team roster: %w", err)
	}
	if roster.Teams == nil {
		roster.Teams = map[string]*entities.RosterEntry{}
	}
	roster.Version = version
	return roster, nil
}

// SaveRoster stages the live team index
func (r *teamRepository) SaveRoster(ctx context.Context, roster *entities.TeamRoster) error {
	return r.reader.stage(RosterKey, roster.Version, roster)
}
