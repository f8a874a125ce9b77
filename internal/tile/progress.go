package tile

// Progress is the load handle of one tile fetch. It reports a fraction in
// [0,1] and, once complete, the raw image bytes.
//
// A Progress is owned by the map's owner goroutine: fetch workers never call
// Set or Complete directly, they dispatch those calls onto the owner.
type Progress struct {
	value  float64
	data   []byte
	subs   []subscription
	nextID int
}

type subscription struct {
	id int
	fn func(float64)
}

func NewProgress() *Progress {
	return &Progress{}
}

// Completed returns a handle that is already at 1.
func Completed(data []byte) *Progress {
	return &Progress{value: 1, data: data}
}

func (p *Progress) Value() float64 {
	return p.value
}

func (p *Progress) Done() bool {
	return p.value >= 1
}

func (p *Progress) Data() []byte {
	return p.data
}

// Subscribe registers fn for every delivered progress value. The returned
// cancel func is safe to call more than once.
func (p *Progress) Subscribe(fn func(float64)) (cancel func()) {
	p.nextID++
	id := p.nextID
	p.subs = append(p.subs, subscription{id: id, fn: fn})

	return func() {
		for i, s := range p.subs {
			if s.id == id {
				p.subs = append(p.subs[:i:i], p.subs[i+1:]...)
				return
			}
		}
	}
}

// Set reports a new progress value. Values lower than the current one are
// dropped; equal values are delivered again, which is how duplicate
// notifications reach subscribers.
func (p *Progress) Set(v float64) {
	v = max(0, min(v, 1))
	if v < p.value {
		return
	}
	p.value = v
	p.notify()
}

// Complete stores the image bytes and moves the handle to 1.
func (p *Progress) Complete(data []byte) {
	if p.data == nil {
		p.data = data
	}
	p.Set(1)
}

func (p *Progress) notify() {
	subs := make([]subscription, len(p.subs))
	copy(subs, p.subs)
	for _, s := range subs {
		s.fn(p.value)
	}
}
