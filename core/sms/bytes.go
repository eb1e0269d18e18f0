package sms

// Message types
const (
	TypeSMS = "SMS"
	TypeLMS = "LMS"
)

// MaxSMSBytes is the longest message sent as an SMS; longer ones go as LMS.
const MaxSMSBytes = 90

// ByteLength counts 1 byte per ASCII character and 2 bytes per other character,
// the way carriers bill korean messages.
func ByteLength(msg string) int {
	n := 0
	for _, r := range msg {
		if r < 0x80 {
			n++
		} else {
			n += 2
		}
	}
	return n
}

// MessageType returns TypeSMS for messages of at most MaxSMSBytes, TypeLMS otherwise.
func MessageType(msg string) string {
	if ByteLength(msg) <= MaxSMSBytes {
		return TypeSMS
	}
	return TypeLMS
}
