package controller

import "tmux-cssh/pkg/terminal"

func (c *Controller) paletteColors(p palette) (fg, bg *terminal.Color) {
	switch p {
	case paletteSelected:
		return c.settings.SelectedForeground, c.settings.SelectedBackground
	case paletteDisabled:
		return c.settings.DisabledForeground, c.settings.DisabledBackground
	}
	return nil, nil
}

// paint recolors a host window after its enabled or selected state
// changed.
func (c *Controller) paint(h *HostWindow) {
	p := h.palette()
	if p == h.painted {
		return
	}
	fg, bg := c.paletteColors(p)
	if err := h.tab.SetTextColor(fg); err != nil {
		c.logger.Warn("set text color", "host", h.String(), "err", err)
	}
	if err := h.tab.SetBackgroundColor(bg); err != nil {
		c.logger.Warn("set background color", "host", h.String(), "err", err)
	}
	h.painted = p
}

func (c *Controller) applyControllerColors() {
	c.colorController(c.settings.ControllerForeground, c.settings.ControllerBackground)
}

func (c *Controller) colorController(fg, bg *terminal.Color) {
	if err := c.tab.SetTextColor(fg); err != nil {
		c.logger.Warn("set controller text color", "err", err)
	}
	if err := c.tab.SetBackgroundColor(bg); err != nil {
		c.logger.Warn("set controller background color", "err", err)
	}
}
