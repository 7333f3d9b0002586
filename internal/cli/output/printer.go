package output

import (
	"fmt"
	"sync"

	"lanspeed/internal/stats"

	"github.com/pterm/pterm"
)

// Printer renders user-facing results without going through the logger.
type Printer struct {
	mu sync.Mutex
}

func NewPrinter() *Printer {
	return &Printer{}
}

// Result prints one finished transfer.
func (p *Printer) Result(r stats.Result) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch r.Protocol {
	case stats.ProtocolUDP:
		pterm.Success.Printfln("UDP transfer #%d finished: %.2f seconds, %s, %.2f%% of packets received",
			r.ID, r.Elapsed.Seconds(), formatBits(r.BitsPerSecond), (1-r.LossRate())*100)
	default:
		pterm.Success.Printfln("TCP transfer #%d finished: %.2f seconds, %s",
			r.ID, r.Elapsed.Seconds(), formatBits(r.BitsPerSecond))
	}
}

// Failure prints one transfer that produced no result.
func (p *Printer) Failure(f stats.Failure) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pterm.Error.Printfln("%s transfer #%d failed: %v", f.Protocol, f.ID, f.Err)
}

// Summary prints the protocol averages of a round. A protocol with no
// transfers is reported as such instead of showing a misleading zero.
func (p *Printer) Summary(s stats.Summary) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pterm.DefaultSection.Println("Round summary")

	if s.HasTCP {
		pterm.Info.Printfln("TCP: %d transfers, average %s", s.TCPTransfers, formatBits(s.AvgTCPBitsPerSecond))
	} else {
		pterm.Info.Println("TCP: no transfers ran")
	}

	if s.HasUDP {
		pterm.Info.Printfln("UDP: %d transfers, average %s, average loss %.2f%%",
			s.UDPTransfers, formatBits(s.AvgUDPBitsPerSecond), s.AvgUDPLossRate*100)
	} else {
		pterm.Info.Println("UDP: no transfers ran")
	}
}

func formatBits(bps float64) string {
	switch {
	case bps >= 1e9:
		return fmt.Sprintf("%.2f Gbit/s", bps/1e9)
	case bps >= 1e6:
		return fmt.Sprintf("%.2f Mbit/s", bps/1e6)
	case bps >= 1e3:
		return fmt.Sprintf("%.2f Kbit/s", bps/1e3)
	default:
		return fmt.Sprintf("%.2f bit/s", bps)
	}
}
