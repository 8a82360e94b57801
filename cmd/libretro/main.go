package main

import (
	libretro "github.com/user-none/eblitui/libretro"

	"github.com/user-none/emfm/adapter"
)

func init() {
	libretro.RegisterFactory(&adapter.Factory{}, []libretro.RetropadMapping{
		{RetroID: libretro.JoypadY, BitID: 4},     // low-pass toggle
		{RetroID: libretro.JoypadStart, BitID: 7}, // restart
	})
}

func main() {}
