package main

import "crosside/internal/crosside"

func main() {
	crosside.Main()
}
