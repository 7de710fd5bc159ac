package vmess

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/subtle"
	"encoding/binary"
	"hash/crc32"
	"time"

	C "github.com/sagernet/sing-edge/constant"
	"github.com/sagernet/sing-vmess"
	"github.com/sagernet/sing/common"
	"github.com/sagernet/sing/common/buf"
	E "github.com/sagernet/sing/common/exceptions"
)

const AuthIDLength = 16

// AuthIDDecoder verifies the time-stamped authentication id that opens an AEAD request.
type AuthIDDecoder struct {
	cmdKey [16]byte
	block  cipher.Block
	window time.Duration
}

func NewAuthIDDecoder(cmdKey [16]byte, window time.Duration) *AuthIDDecoder {
	block, err := aes.NewCipher(vmess.KDF(cmdKey[:], vmess.KDFSaltConstAuthIDEncryptionKey)[:16])
	common.Must(err)
	if window == 0 {
		window = C.VMessAuthWindow
	}
	return &AuthIDDecoder{cmdKey, block, window}
}

// Verify checks the checksum and the timestamp window. Replays within the window are
// accepted since no state is kept between connections.
func (d *AuthIDDecoder) Verify(authID []byte, now time.Time) error {
	if len(authID) < AuthIDLength {
		return C.ErrTruncatedHeader
	}
	var plain [AuthIDLength]byte
	d.block.Decrypt(plain[:], authID[:AuthIDLength])
	var checksum [4]byte
	binary.BigEndian.PutUint32(checksum[:], crc32.ChecksumIEEE(plain[:12]))
	if subtle.ConstantTimeCompare(checksum[:], plain[12:]) != 1 {
		return E.Extend(C.ErrAuthenticationFailed, "bad auth id")
	}
	timestamp := time.Unix(int64(binary.BigEndian.Uint64(plain[:8])), 0)
	skew := now.Sub(timestamp)
	if skew > d.window || skew < -d.window {
		return E.Extend(C.ErrAuthenticationFailed, "auth id out of window: ", skew.Truncate(time.Second))
	}
	return nil
}

// Create builds an authentication id for now.
func (d *AuthIDDecoder) Create(now time.Time) (authID [AuthIDLength]byte) {
	vmess.AuthID(d.cmdKey, now, buf.With(authID[:]))
	return
}
