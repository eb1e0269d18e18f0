package sms

import (
	"strings"
	"testing"
)

func TestByteLength(t *testing.T) {
	tests := []struct {
		name string
		msg  string
		want int
	}{
		{name: "empty", msg: "", want: 0},
		{name: "10 ascii", msg: "Hello 1234", want: 10},
		{name: "10 korean", msg: "안녕하세요반갑습니다", want: 20},
		{name: "mixed", msg: "목장 모임 7pm", want: 13},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ByteLength(tt.msg); got != tt.want {
				t.Errorf("ByteLength() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMessageType(t *testing.T) {
	tests := []struct {
		name string
		msg  string
		want string
	}{
		{name: "short", msg: "hi", want: TypeSMS},
		{name: "90 bytes", msg: strings.Repeat("a", 90), want: TypeSMS},
		{name: "90 bytes korean", msg: strings.Repeat("가", 45), want: TypeSMS},
		{name: "91 bytes", msg: strings.Repeat("a", 91), want: TypeLMS},
		{name: "91 bytes mixed", msg: strings.Repeat("가", 45) + "a", want: TypeLMS},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MessageType(tt.msg); got != tt.want {
				t.Errorf("MessageType() = %s, want %s", got, tt.want)
			}
		})
	}
}
