package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"pet-adoption/internal/domain/pets"
)

type PetsRepo struct {
	db *sql.DB
}

func NewPetsRepo(db *sql.DB) *PetsRepo {
	return &PetsRepo{db: db}
}

const petColumns = `
	id, name, species, breed, age, gender, size, color,
	description, images, status, created_by, created_at, updated_at`

func (r *PetsRepo) Create(ctx context.Context, p pets.Pet) error {
	images, err := encodeImages(p.Images)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO pets (`+petColumns+`
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`,
		p.ID,
		p.Name,
		p.Species,
		p.Breed,
		p.Age,
		string(p.Gender),
		string(p.Size),
		p.Color,
		p.Description,
		images,
		string(p.Status),
		p.CreatedBy,
		p.CreatedAt,
		p.UpdatedAt,
	)
	return dbErr(err)
}

// Update no escribe status: eso es de UpdateStatus.
func (r *PetsRepo) Update(ctx context.Context, p pets.Pet) error {
	images, err := encodeImages(p.Images)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE pets
		SET
			name = $2,
			species = $3,
			breed = $4,
			age = $5,
			gender = $6,
			size = $7,
			color = $8,
			description = $9,
			images = $10,
			updated_at = $11
		WHERE id = $1
	`,
		p.ID,
		p.Name,
		p.Species,
		p.Breed,
		p.Age,
		string(p.Gender),
		string(p.Size),
		p.Color,
		p.Description,
		images,
		p.UpdatedAt,
	)
	return affectedOne(res, err, pets.ErrNotFound)
}

func (r *PetsRepo) UpdateStatus(ctx context.Context, id string, status pets.Status, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE pets SET status = $2, updated_at = $3 WHERE id = $1
	`, id, string(status), at)
	return affectedOne(res, err, pets.ErrNotFound)
}

func (r *PetsRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM pets WHERE id = $1`, id)
	return affectedOne(res, err, pets.ErrNotFound)
}

func (r *PetsRepo) GetByID(ctx context.Context, id string) (pets.Pet, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return pets.Pet{}, pets.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `SELECT `+petColumns+` FROM pets WHERE id = $1`, id)
	p, err := scanPet(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return pets.Pet{}, pets.ErrNotFound
		}
		return pets.Pet{}, dbErr(err)
	}
	return p, nil
}

func (r *PetsRepo) List(ctx context.Context, f pets.ListFilter) ([]pets.Pet, int, error) {
	where, args := petsWhere(f)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pets`+where, args...).Scan(&total); err != nil {
		return nil, 0, dbErr(err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 10
	}
	args = append(args, limit, f.Offset())
	q := fmt.Sprintf(`SELECT %s FROM pets%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		petColumns, where, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, dbErr(err)
	}
	defer rows.Close()

	out := make([]pets.Pet, 0)
	for rows.Next() {
		p, err := scanPet(rows)
		if err != nil {
			return nil, 0, dbErr(err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, dbErr(err)
	}
	return out, total, nil
}

// petsWhere traduce ListFilter a SQL. Mismo criterio que ListFilter.Matches.
func petsWhere(f pets.ListFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if s := strings.TrimSpace(f.Species); s != "" {
		conds = append(conds, "lower(species) = lower("+arg(s)+")")
	}
	if b := strings.TrimSpace(f.Breed); b != "" {
		conds = append(conds, "breed ILIKE "+arg(likePattern(b)))
	}
	if f.MinAge != nil {
		conds = append(conds, "age >= "+arg(*f.MinAge))
	}
	if f.MaxAge != nil {
		conds = append(conds, "age <= "+arg(*f.MaxAge))
	}
	if f.Status != "" {
		conds = append(conds, "status = "+arg(string(f.Status)))
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		p := arg(likePattern(q))
		conds = append(conds, "(name ILIKE "+p+" OR breed ILIKE "+p+")")
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

func scanPet(row rowScanner) (pets.Pet, error) {
	var (
		p            pets.Pet
		gender, size string
		status       string
		images       []byte
	)
	if err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Species,
		&p.Breed,
		&p.Age,
		&gender,
		&size,
		&p.Color,
		&p.Description,
		&images,
		&status,
		&p.CreatedBy,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return pets.Pet{}, err
	}

	p.Gender = pets.Gender(gender)
	p.Size = pets.Size(size)
	p.Status = pets.Status(status)

	p.Images = []string{}
	if len(images) > 0 {
		if err := json.Unmarshal(images, &p.Images); err != nil {
			return pets.Pet{}, fmt.Errorf("decode images: %w", err)
		}
	}
	return p, nil
}

func encodeImages(images []string) (string, error) {
	if images == nil {
		images = []string{}
	}
	b, err := json.Marshal(images)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// affectedOne: error de driver -> dbErr; 0 filas -> notFound.
func affectedOne(res sql.Result, err error, notFound error) error {
	if err != nil {
		return dbErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return dbErr(err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
