package sitesettings

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/spacehome/spacehome/internal/urlsafety"
)

//nolint:gochecknoglobals
var (
	validate = newValidator()

	hexColor  = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
	youtubeID = regexp.MustCompile(`(?:youtube\.com/(?:watch\?v=|embed/)|youtu\.be/)([a-zA-Z0-9_-]{11})`)
)

// Update is a partial settings document. Nil fields are left untouched and
// unknown JSON keys are ignored. Validation runs in field order: URLs, colors,
// then lengths.
type Update struct {
	ProfilePic      *string `json:"profilePic" validate:"omitempty,safeurl"`
	MusicAlbumArt   *string `json:"musicAlbumArt" validate:"omitempty,safeurl"`
	AboutMeImage    *string `json:"aboutMeImage" validate:"omitempty,safeurl"`
	MeetImage       *string `json:"meetImage" validate:"omitempty,safeurl"`
	BackgroundImage *string `json:"backgroundImage" validate:"omitempty,safeurl"`
	IntroGif        *string `json:"introGif" validate:"omitempty,safeurl"`

	PrimaryColor   *string `json:"primaryColor" validate:"omitempty,csscolor"`
	SecondaryColor *string `json:"secondaryColor" validate:"omitempty,csscolor"`
	AccentColor    *string `json:"accentColor" validate:"omitempty,csscolor"`
	TextColor      *string `json:"textColor" validate:"omitempty,csscolor"`
	BgColor        *string `json:"bgColor" validate:"omitempty,csscolor"`

	ProfileName     *string `json:"profileName" validate:"omitempty,max=100"`
	ProfileMood     *string `json:"profileMood" validate:"omitempty,max=100"`
	ProfileBio      *string `json:"profileBio" validate:"omitempty,max=500"`
	MusicTitle      *string `json:"musicTitle" validate:"omitempty,max=200"`
	MusicArtist     *string `json:"musicArtist" validate:"omitempty,max=200"`
	AboutMeText     *string `json:"aboutMeText" validate:"omitempty,max=2000"`
	AIPersona       *string `json:"aiPersona" validate:"omitempty,max=5000"`
	OpenrouterModel *string `json:"openrouterModel" validate:"omitempty,max=100"`

	OpenrouterAPIKey *string `json:"openrouterApiKey" validate:"omitempty,max=500"`
	MusicYoutubeID   *string `json:"musicYoutubeId" validate:"omitempty,max=11"`

	// MusicYoutubeURL is converted into MusicYoutubeID and never stored.
	MusicYoutubeURL *string `json:"musicYoutubeUrl"`
}

// Validate checks u and returns the first problem as an ErrValidation.
func (u *Update) Validate() error {
	err := validate.Struct(u)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	fe := fieldErrs[0]

	switch fe.Tag() {
	case "safeurl":
		return fmt.Errorf("%w: Invalid URL for %s", ErrValidation, fe.Field())
	case "csscolor":
		return fmt.Errorf("%w: Invalid color format for %s", ErrValidation, fe.Field())
	case "max":
		return fmt.Errorf("%w: %s is too long (max %s characters)", ErrValidation, fe.Field(), fe.Param())
	default:
		return fmt.Errorf("%w: invalid value for %s", ErrValidation, fe.Field())
	}
}

// Message strips the ErrValidation prefix for client responses.
func Message(err error) string {
	return strings.TrimPrefix(err.Error(), ErrValidation.Error()+": ")
}

// YoutubeID extracts the 11 character video id from watch, embed and short links.
func YoutubeID(link string) (string, bool) {
	m := youtubeID.FindStringSubmatch(link)
	if m == nil {
		return "", false
	}

	return m[1], true
}

func (u *Update) mergeInto(s *Settings) {
	if u.MusicYoutubeURL != nil {
		if id, ok := YoutubeID(*u.MusicYoutubeURL); ok {
			u.MusicYoutubeID = &id
		}
	}

	// the masked placeholder echoed back by a settings form keeps the stored key
	if u.OpenrouterAPIKey != nil && *u.OpenrouterAPIKey == SecretMask {
		u.OpenrouterAPIKey = nil
	}

	for _, f := range []struct {
		src *string
		dst *string
	}{
		{u.ProfileName, &s.ProfileName},
		{u.ProfilePic, &s.ProfilePic},
		{u.ProfileMood, &s.ProfileMood},
		{u.ProfileBio, &s.ProfileBio},
		{u.MusicTitle, &s.MusicTitle},
		{u.MusicArtist, &s.MusicArtist},
		{u.MusicAlbumArt, &s.MusicAlbumArt},
		{u.MusicYoutubeID, &s.MusicYoutubeID},
		{u.AboutMeImage, &s.AboutMeImage},
		{u.AboutMeText, &s.AboutMeText},
		{u.MeetImage, &s.MeetImage},
		{u.BackgroundImage, &s.BackgroundImage},
		{u.IntroGif, &s.IntroGif},
		{u.PrimaryColor, &s.PrimaryColor},
		{u.SecondaryColor, &s.SecondaryColor},
		{u.AccentColor, &s.AccentColor},
		{u.TextColor, &s.TextColor},
		{u.BgColor, &s.BgColor},
		{u.OpenrouterAPIKey, &s.OpenrouterAPIKey},
		{u.OpenrouterModel, &s.OpenrouterModel},
		{u.AIPersona, &s.AIPersona},
	} {
		if f.src != nil {
			*f.dst = *f.src
		}
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// report json names so messages match what the client sent
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}

		return name
	})

	_ = v.RegisterValidation("safeurl", func(fl validator.FieldLevel) bool { //nolint:errcheck // static tag
		u := fl.Field().String()

		return u == "" || urlsafety.IsAllowed(u, urlsafety.GenericLink)
	})

	_ = v.RegisterValidation("csscolor", func(fl validator.FieldLevel) bool { //nolint:errcheck // static tag
		c := fl.Field().String()

		return c == "" || hexColor.MatchString(c) || strings.HasPrefix(c, "rgb")
	})

	return v
}
