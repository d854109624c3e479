package relay

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"testing"

	"stdiosock/internal/registry"
)

type discardSink struct{ id string }

func (d discardSink) ID() string                  { return d.id }
func (d discardSink) Write(p []byte) (int, error) { return len(p), nil }
func (d discardSink) Disconnect()                 {}

func BenchmarkFanout(b *testing.B) {
	payload := bytes.Repeat([]byte("0123456789abcdef\n"), 64)

	for _, clients := range []int{0, 1, 8} {
		b.Run(fmt.Sprintf("clients=%d", clients), func(b *testing.B) {
			reg := registry.New()
			for i := 0; i < clients; i++ {
				reg.Add(discardSink{id: fmt.Sprint(i)})
			}
			b.SetBytes(int64(len(payload)))
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				f := newFanout(bytes.NewReader(payload), io.Discard, reg)
				if err := f.Run(context.Background()); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
