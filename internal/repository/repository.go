package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vanshika/comptree/backend/internal/domain"
	"github.com/vanshika/comptree/backend/internal/graph"
)

// ErrMemberNotFound is returned when a member lookup matches no node.
var ErrMemberNotFound = errors.New("member not found")

// NetworkRepository persists members and sponsor edges in the graph.
// Model: (:Member {memberId})-[:SPONSORED]->(:Member).
type NetworkRepository struct {
	client graph.Client
}

// New instantiates a NetworkRepository backed by the supplied graph client.
func New(client graph.Client) *NetworkRepository {
	return &NetworkRepository{client: client}
}

// EnsureSchema creates the uniqueness constraint on member IDs.
func (r *NetworkRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.client.ExecuteWrite(ctx, memberConstraintCypher, nil); err != nil {
		return fmt.Errorf("ensure member constraint: %w", err)
	}
	return nil
}

// UpsertMember writes the member node and re-points its sponsor edge.
// An empty sponsorID leaves the member without a sponsor, marking a root.
func (r *NetworkRepository) UpsertMember(ctx context.Context, rec domain.MemberRecord, sponsorID string) error {
	if rec.ID == "" {
		return errors.New("member id is required")
	}
	if sponsorID == rec.ID {
		return fmt.Errorf("member %s cannot sponsor itself", rec.ID)
	}

	params := map[string]any{
		"memberId":  rec.ID,
		"sponsorId": sponsorID,
		"props":     memberProperties(rec.MemberAttributes),
	}
	if _, err := r.client.ExecuteWrite(ctx, upsertMemberCypher, params); err != nil {
		return fmt.Errorf("upsert member %s: %w", rec.ID, err)
	}
	return nil
}

// FetchEdges returns the sponsor edges of the subtree rooted at rootID, at most maxDepth
// levels deep counting the root as level 1. The root's edge always has an empty sponsor.
func (r *NetworkRepository) FetchEdges(ctx context.Context, rootID string, maxDepth int) ([]domain.Edge, error) {
	if rootID == "" {
		return nil, errors.New("root id is required")
	}
	if maxDepth <= 0 {
		return nil, fmt.Errorf("max depth must be positive, got %d", maxDepth)
	}

	res, err := r.client.ExecuteRead(ctx, fetchEdgesQuery(maxDepth), map[string]any{"rootId": rootID})
	if err != nil {
		return nil, fmt.Errorf("fetch edges for %s: %w", rootID, err)
	}

	edges := make([]domain.Edge, 0, len(res.Records))
	for _, record := range res.Records {
		edge := domain.Edge{
			MemberID:  record.String("memberId"),
			SponsorID: record.String("sponsorId"),
		}
		if edge.MemberID == rootID {
			edge.SponsorID = ""
		}
		edges = append(edges, edge)
	}
	return edges, nil
}

// FetchMemberRecord loads the attributes of a single member.
func (r *NetworkRepository) FetchMemberRecord(ctx context.Context, id string) (domain.MemberRecord, error) {
	if id == "" {
		return domain.MemberRecord{}, errors.New("member id is required")
	}
	res, err := r.client.ExecuteRead(ctx, fetchMemberCypher, map[string]any{"memberId": id})
	if err != nil {
		return domain.MemberRecord{}, fmt.Errorf("fetch member %s: %w", id, err)
	}
	if len(res.Records) == 0 {
		return domain.MemberRecord{}, fmt.Errorf("%w: %s", ErrMemberNotFound, id)
	}
	return recordToMember(res.Records[0]), nil
}

// FetchMemberRecords loads the attributes of many members in one round trip.
// Unknown IDs are skipped; the caller detects them as dangling edges.
func (r *NetworkRepository) FetchMemberRecords(ctx context.Context, ids []string) ([]domain.MemberRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	res, err := r.client.ExecuteRead(ctx, fetchMembersCypher, map[string]any{"memberIds": ids})
	if err != nil {
		return nil, fmt.Errorf("fetch %d members: %w", len(ids), err)
	}
	out := make([]domain.MemberRecord, 0, len(res.Records))
	for _, record := range res.Records {
		out = append(out, recordToMember(record))
	}
	return out, nil
}

func recordToMember(record graph.Record) domain.MemberRecord {
	return domain.MemberRecord{
		ID: record.String("memberId"),
		MemberAttributes: domain.MemberAttributes{
			Name:             record.String("name"),
			Tier:             record.String("tier"),
			Volume:           record.Float("volume"),
			IsActive:         record.Bool("isActive"),
			JoinOrder:        record.Int("joinOrder"),
			RegistrationTime: record.Time("registeredAt"),
		},
	}
}

func memberProperties(a domain.MemberAttributes) map[string]any {
	props := map[string]any{
		"name":      a.Name,
		"tier":      a.Tier,
		"volume":    a.Volume,
		"isActive":  a.IsActive,
		"joinOrder": a.JoinOrder,
	}
	if !a.RegistrationTime.IsZero() {
		props["registeredAt"] = formatTime(a.RegistrationTime)
	}
	return props
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// fetchEdgesQuery inlines the hop bound because Cypher does not accept it as a parameter.
func fetchEdgesQuery(maxDepth int) string {
	return fmt.Sprintf(fetchEdgesCypherTemplate, maxDepth-1)
}

const memberConstraintCypher = `
CREATE CONSTRAINT member_id IF NOT EXISTS
FOR (m:Member) REQUIRE m.memberId IS UNIQUE
`

const upsertMemberCypher = `
MERGE (m:Member {memberId: $memberId})
SET m += $props
WITH m
OPTIONAL MATCH (prev:Member)-[old:SPONSORED]->(m)
WHERE prev.memberId <> $sponsorId
DELETE old
WITH DISTINCT m
FOREACH (_ IN CASE WHEN $sponsorId = "" THEN [] ELSE [1] END |
	MERGE (s:Member {memberId: $sponsorId})
	MERGE (s)-[:SPONSORED]->(m)
)
RETURN m.memberId AS memberId
`

const fetchEdgesCypherTemplate = `
MATCH (root:Member {memberId: $rootId})
MATCH p = (root)-[:SPONSORED*0..%d]->(m:Member)
WITH m, min(length(p)) AS depth
OPTIONAL MATCH (s:Member)-[:SPONSORED]->(m)
RETURN m.memberId AS memberId,
       s.memberId AS sponsorId,
       depth
ORDER BY depth, m.joinOrder, m.memberId
`

const memberReturnClause = `
RETURN m.memberId AS memberId,
       m.name AS name,
       m.tier AS tier,
       coalesce(m.volume, 0.0) AS volume,
       coalesce(m.isActive, false) AS isActive,
       coalesce(m.joinOrder, 0) AS joinOrder,
       m.registeredAt AS registeredAt
`

const fetchMemberCypher = `
MATCH (m:Member {memberId: $memberId})` + memberReturnClause

const fetchMembersCypher = `
UNWIND $memberIds AS memberId
MATCH (m:Member {memberId: memberId})` + memberReturnClause
