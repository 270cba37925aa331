package transfer

// HandshakeMessage travels sender -> receiver.
type HandshakeMessage struct {
	Sender         string
	EncryptedNonce []byte
	NonceSignature []byte
}

// KeyExchangeMessage travels receiver -> sender. Key material is key||IV.
type KeyExchangeMessage struct {
	EncryptedKey []byte
	KeySignature []byte
}

// FileMessage travels sender -> receiver.
type FileMessage struct {
	Ciphertext      []byte
	Digest          []byte
	DigestSignature []byte
}

// Link carries protocol messages between the two roles. Both roles run in the
// same process, so a Link is a value pass and cannot fail; a Link that
// rewrites messages models an active attacker on the channel.
type Link interface {
	Handshake(HandshakeMessage) HandshakeMessage
	KeyExchange(KeyExchangeMessage) KeyExchangeMessage
	File(FileMessage) FileMessage
}

// DirectLink delivers every message unchanged.
type DirectLink struct{}

func (DirectLink) Handshake(m HandshakeMessage) HandshakeMessage       { return m }
func (DirectLink) KeyExchange(m KeyExchangeMessage) KeyExchangeMessage { return m }
func (DirectLink) File(m FileMessage) FileMessage                      { return m }

var _ Link = DirectLink{}
