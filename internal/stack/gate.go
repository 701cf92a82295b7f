package stack

import "time"

// WaitUntil samples repeatedly until pred holds for a sampled value,
// sleeping interval between attempts. There is no timeout and no attempt
// limit: an unready camera is simply polled again. A sampling error is
// treated as fatal (a missing reference asset, a vanished window) and
// surfaces immediately.
func WaitUntil[T any](sample func() (T, error), pred func(T) bool, interval time.Duration) error {
	for {
		v, err := sample()
		if err != nil {
			return err
		}
		if pred(v) {
			return nil
		}
		time.Sleep(interval)
	}
}
