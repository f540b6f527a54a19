package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/ashverma/pledge/internal/model"
)

type PartnershipStore struct {
	db *sql.DB
}

func NewPartnershipStore(db *sql.DB) *PartnershipStore {
	return &PartnershipStore{db: db}
}

func scanPartnership(scanner interface{ Scan(...any) error }) (*model.Partnership, error) {
	var p model.Partnership
	err := scanner.Scan(&p.ID, &p.RequesterID, &p.ReceiverEmail, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

const partnershipCols = `id, requester_id, receiver_email, status, created_at, updated_at`

// Create records a pending partnership request to the given email.
func (s *PartnershipStore) Create(requesterID int64, receiverEmail string) (*model.Partnership, error) {
	result, err := s.db.Exec(
		`INSERT INTO partnerships (requester_id, receiver_email) VALUES (?, ?)`,
		requesterID, strings.ToLower(strings.TrimSpace(receiverEmail)),
	)
	if err != nil {
		return nil, fmt.Errorf("insert partnership: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *PartnershipStore) GetByID(id int64) (*model.Partnership, error) {
	row := s.db.QueryRow(`SELECT `+partnershipCols+` FROM partnerships WHERE id = ?`, id)
	p, err := scanPartnership(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get partnership: %w", err)
	}
	return p, nil
}

// ListIncoming returns pending requests addressed to the given email,
// joined with the requester's identity for display.
func (s *PartnershipStore) ListIncoming(receiverEmail string) ([]model.PartnershipRequest, error) {
	rows, err := s.db.Query(
		`SELECT p.id, p.requester_id, p.receiver_email, p.status, p.created_at, p.updated_at, u.name, u.email
		 FROM partnerships p JOIN users u ON u.id = p.requester_id
		 WHERE p.receiver_email = ? AND p.status = 'pending'
		 ORDER BY p.created_at DESC`,
		strings.ToLower(strings.TrimSpace(receiverEmail)),
	)
	if err != nil {
		return nil, fmt.Errorf("list incoming requests: %w", err)
	}
	defer rows.Close()

	var reqs []model.PartnershipRequest
	for rows.Next() {
		var r model.PartnershipRequest
		err := rows.Scan(
			&r.ID, &r.RequesterID, &r.ReceiverEmail, &r.Status, &r.CreatedAt, &r.UpdatedAt,
			&r.RequesterName, &r.RequesterEmail,
		)
		if err != nil {
			return nil, fmt.Errorf("scan incoming request: %w", err)
		}
		reqs = append(reqs, r)
	}
	return reqs, rows.Err()
}

// ListOutgoing returns requests the user has sent that are still pending.
func (s *PartnershipStore) ListOutgoing(requesterID int64) ([]model.Partnership, error) {
	rows, err := s.db.Query(
		`SELECT `+partnershipCols+` FROM partnerships WHERE requester_id = ? AND status = 'pending' ORDER BY created_at DESC`,
		requesterID,
	)
	if err != nil {
		return nil, fmt.Errorf("list outgoing requests: %w", err)
	}
	defer rows.Close()

	var ps []model.Partnership
	for rows.Next() {
		p, err := scanPartnership(rows)
		if err != nil {
			return nil, fmt.Errorf("scan outgoing request: %w", err)
		}
		ps = append(ps, *p)
	}
	return ps, rows.Err()
}

// Accept marks a pending request accepted.
func (s *PartnershipStore) Accept(id int64) (*model.Partnership, error) {
	_, err := s.db.Exec(
		`UPDATE partnerships SET status = 'accepted', updated_at = CURRENT_TIMESTAMP WHERE id = ? AND status = 'pending'`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("accept partnership: %w", err)
	}
	return s.GetByID(id)
}

// ListPartners returns the profiles linked to the user through an
// accepted partnership, on either side of the request.
func (s *PartnershipStore) ListPartners(userID int64, userEmail string) ([]model.User, error) {
	rows, err := s.db.Query(
		`SELECT `+prefixedUserCols("u")+` FROM users u
		 WHERE u.id IN (
		     SELECT p.requester_id FROM partnerships p WHERE p.receiver_email = ? AND p.status = 'accepted'
		 )
		 OR u.email IN (
		     SELECT p.receiver_email FROM partnerships p WHERE p.requester_id = ? AND p.status = 'accepted'
		 )
		 ORDER BY u.name ASC`,
		strings.ToLower(strings.TrimSpace(userEmail)), userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list partners: %w", err)
	}
	defer rows.Close()

	var partners []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan partner: %w", err)
		}
		partners = append(partners, *u)
	}
	return partners, rows.Err()
}

// HasAccess reports whether viewer may read owner's data: always true
// for self, otherwise only through an accepted partnership.
func (s *PartnershipStore) HasAccess(viewer model.User, ownerID int64) (bool, error) {
	if viewer.ID == ownerID {
		return true, nil
	}
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM partnerships p
		 JOIN users owner ON owner.id = ?
		 WHERE p.status = 'accepted'
		 AND ((p.requester_id = ? AND p.receiver_email = owner.email)
		   OR (p.requester_id = owner.id AND p.receiver_email = ?))`,
		ownerID, viewer.ID, strings.ToLower(viewer.Email),
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check partner access: %w", err)
	}
	return n > 0, nil
}

func prefixedUserCols(alias string) string {
	cols := strings.Split(userCols, ", ")
	for i, c := range cols {
		cols[i] = alias + "." + c
	}
	return strings.Join(cols, ", ")
}
