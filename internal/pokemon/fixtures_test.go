package pokemon

import (
	"testing"

	"github.com/hession/pokemate/internal/pokeapi/pokeapitest"
)

type fakeCatalog struct {
	*pokeapitest.Server
}

func newFakeCatalog(t *testing.T) *fakeCatalog {
	return &fakeCatalog{Server: pokeapitest.New(t)}
}

func (fc *fakeCatalog) fetcher() *Fetcher {
	return NewFetcher(fc.Client())
}

var (
	newPokemon = pokeapitest.NewPokemon
	link       = pokeapitest.Link
)
