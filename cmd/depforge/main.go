package main

import "depforge/internal/depforge"

func main() {
	depforge.Main()
}
