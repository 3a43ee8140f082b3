package fs

// SetLinkFunc replaces the hard-link call used by l.
func (l *Linker) SetLinkFunc(fn func(oldname, newname string) error) {
	l.link = fn
}
