package azuredevops

import (
	stderrors "errors"

	"azdoauth/internal/provider"
	"azdoauth/pkg/errors"
)

// ErrMissingAvatar is returned by MapProfile when the profile carries no
// avatar payload.
var ErrMissingAvatar = stderrors.New("azuredevops: profile has no avatar payload")

const avatarDataURIPrefix = "data:image/jpeg;base64,"

// Profile is the body of GET /_apis/profile/profiles/me.
type Profile struct {
	ID             string         `json:"id"`
	DisplayName    string         `json:"displayName"`
	PublicAlias    string         `json:"publicAlias,omitempty"`
	EmailAddress   string         `json:"emailAddress"`
	CoreAttributes CoreAttributes `json:"coreAttributes"`
}

type CoreAttributes struct {
	Avatar *AvatarAttribute `json:"Avatar"`
}

type AvatarAttribute struct {
	Descriptor string       `json:"descriptor,omitempty"`
	Value      *AvatarValue `json:"value"`
}

// AvatarValue.Value is the base64 encoded image.
type AvatarValue struct {
	IsAutoGenerated bool   `json:"isAutoGenerated,omitempty"`
	Size            string `json:"size,omitempty"`
	Value           string `json:"value"`
}

// MapProfile converts the remote profile to the host's User. The avatar is
// embedded as a data URI; a profile without one is rejected.
func MapProfile(p *Profile) (provider.User, error) {
	if p == nil {
		return provider.User{}, errors.NewError(errors.ErrorTypeUpstream, "empty profile")
	}

	avatar := p.CoreAttributes.Avatar
	if avatar == nil || avatar.Value == nil || avatar.Value.Value == "" {
		return provider.User{}, errors.NewError(errors.ErrorTypeUpstream, "map profile").
			WithCause(ErrMissingAvatar).
			WithDetail("profile_id", p.ID)
	}

	return provider.User{
		ID:    p.ID,
		Name:  p.DisplayName,
		Email: p.EmailAddress,
		Image: avatarDataURIPrefix + avatar.Value.Value,
	}, nil
}
