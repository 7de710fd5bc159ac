package tunnel

import (
	"crypto/subtle"
	"time"

	"github.com/sagernet/sing-edge/transport/trojan"
	"github.com/sagernet/sing-edge/transport/vmess"
	sVMess "github.com/sagernet/sing-vmess"
	E "github.com/sagernet/sing/common/exceptions"

	"github.com/gofrs/uuid/v5"
)

// Validator compares credentials against the trust identifier in constant time.
type Validator struct {
	uuid      uuid.UUID
	trojanKey [trojan.KeyLength]byte
	cmdKey    [16]byte
	authID    *vmess.AuthIDDecoder
	timeFunc  func() time.Time
}

func NewValidator(id uuid.UUID, window time.Duration, timeFunc func() time.Time) *Validator {
	if timeFunc == nil {
		timeFunc = time.Now
	}
	cmdKey := sVMess.Key(id)
	return &Validator{
		uuid:      id,
		trojanKey: trojan.Key(id.String()),
		cmdKey:    cmdKey,
		authID:    vmess.NewAuthIDDecoder(cmdKey, window),
		timeFunc:  timeFunc,
	}
}

func (v *Validator) VerifyVLESS(id []byte) error {
	if subtle.ConstantTimeCompare(id, v.uuid[:]) != 1 {
		return E.Extend(ErrAuthenticationFailed, "unknown id")
	}
	return nil
}

func (v *Validator) VerifyTrojan(key []byte) error {
	if subtle.ConstantTimeCompare(key, v.trojanKey[:]) != 1 {
		return E.Extend(ErrAuthenticationFailed, "unknown key")
	}
	return nil
}

func (v *Validator) VerifyAuthID(authID []byte) error {
	return v.authID.Verify(authID, v.timeFunc())
}

func (v *Validator) VMessKey() [16]byte {
	return v.cmdKey
}
