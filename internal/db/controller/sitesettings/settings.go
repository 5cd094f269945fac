// Package sitesettings reads and writes the site settings singleton: profile,
// music, about, colors and the AI chat configuration.
package sitesettings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/spacehome/spacehome/internal/db/controller/setting"
)

const (
	// Name is the fixed key of the singleton in the settings table.
	Name = "site_settings"

	// SecretMask replaces a configured API key on every read path.
	SecretMask = "••••••••"
)

var (
	// ErrValidation wraps a user facing validation message.
	ErrValidation = errors.New("invalid settings")
	// ErrDBNil is returned when the repository has no database.
	ErrDBNil = errors.New("database connection is nil")
)

// Settings is the stored document. OpenrouterAPIKey is a secret; use Public before
// handing a value to a client.
type Settings struct {
	ProfileName      string    `json:"profileName"`
	ProfilePic       string    `json:"profilePic"`
	ProfileMood      string    `json:"profileMood"`
	ProfileBio       string    `json:"profileBio"`
	MusicTitle       string    `json:"musicTitle"`
	MusicArtist      string    `json:"musicArtist"`
	MusicAlbumArt    string    `json:"musicAlbumArt"`
	MusicYoutubeID   string    `json:"musicYoutubeId"`
	AboutMeImage     string    `json:"aboutMeImage"`
	AboutMeText      string    `json:"aboutMeText"`
	MeetImage        string    `json:"meetImage"`
	BackgroundImage  string    `json:"backgroundImage"`
	IntroGif         string    `json:"introGif"`
	PrimaryColor     string    `json:"primaryColor"`
	SecondaryColor   string    `json:"secondaryColor"`
	AccentColor      string    `json:"accentColor"`
	TextColor        string    `json:"textColor"`
	BgColor          string    `json:"bgColor"`
	OpenrouterAPIKey string    `json:"openrouterApiKey"`
	OpenrouterModel  string    `json:"openrouterModel"`
	AIPersona        string    `json:"aiPersona"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Defaults is the document created on first read.
func Defaults() Settings {
	return Settings{
		ProfileName:    "spacehome",
		ProfileMood:    "online",
		ProfileBio:     "welcome to my space",
		AboutMeText:    "Thanks for stopping by!",
		PrimaryColor:   "#b07ded",
		SecondaryColor: "#9b6dd9",
		AccentColor:    "#c9abff",
		TextColor:      "#e0b0ff",
		BgColor:        "rgba(30, 20, 50, 0.7)",
	}
}

// Public returns a copy with the API key replaced by SecretMask, or "" when unset.
func (s Settings) Public() Settings {
	if s.OpenrouterAPIKey != "" {
		s.OpenrouterAPIKey = SecretMask
	}

	return s
}

// HasAPIKey reports whether the chat relay is configured.
func (s *Settings) HasAPIKey() bool {
	return s.OpenrouterAPIKey != ""
}

// Repository loads and updates the singleton.
type Repository struct {
	db *gorm.DB
}

// NewRepository returns a repository on db.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Load returns the stored settings, creating the defaults when the row is missing.
func (r *Repository) Load(ctx context.Context) (Settings, error) {
	if r.db == nil {
		return Settings{}, ErrDBNil
	}

	return load(ctx, r.db)
}

// Seed stores the defaults unless the singleton already exists.
func (r *Repository) Seed(ctx context.Context) error {
	if r.db == nil {
		return ErrDBNil
	}

	return seed(ctx, r.db)
}

// Apply validates u and merges it into the stored settings in one transaction.
// Validation failures wrap ErrValidation.
func (r *Repository) Apply(ctx context.Context, u *Update) (Settings, error) {
	if r.db == nil {
		return Settings{}, ErrDBNil
	}

	if err := u.Validate(); err != nil {
		return Settings{}, err
	}

	var out Settings

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := load(ctx, tx)
		if err != nil {
			return err
		}

		u.mergeInto(&current)
		current.UpdatedAt = time.Now().UTC()

		blob, err := json.Marshal(current)
		if err != nil {
			return fmt.Errorf("encode settings: %w", err)
		}

		if err = setting.Set(ctx, tx, Name, blob); err != nil {
			return err
		}

		out = current

		return nil
	})

	return out, err
}

func load(ctx context.Context, db *gorm.DB) (Settings, error) {
	row, err := setting.Get(ctx, db, Name)
	if errors.Is(err, setting.ErrSettingNotFound) {
		if err = seed(ctx, db); err != nil {
			return Settings{}, err
		}

		row, err = setting.Get(ctx, db, Name)
	}

	if err != nil {
		return Settings{}, err
	}

	// fields missing from an older document keep their defaults
	s := Defaults()
	if err = json.Unmarshal(row.Value, &s); err != nil {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}

	return s, nil
}

func seed(ctx context.Context, db *gorm.DB) error {
	d := Defaults()
	d.UpdatedAt = time.Now().UTC()

	blob, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	return setting.CreateIfAbsent(ctx, db, Name, blob)
}
