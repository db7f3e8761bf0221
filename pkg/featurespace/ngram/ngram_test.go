package ngram

import (
	"reflect"
	"sort"
	"testing"
)

func TestWordNGrams(t *testing.T) {
	got := WordNGrams([]string{"a", "b", "c"}, 1, 2)
	want := []string{"a", "a_b", "b", "b_c", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestWordNGramsLongerThanInput(t *testing.T) {
	got := WordNGrams([]string{"a", "b"}, 3, 5)
	if len(got) != 0 {
		t.Errorf("Expected no n-grams, got %v", got)
	}
}

func TestCharNGrams(t *testing.T) {
	got := CharNGrams("abcd", 2, 3)
	sort.Strings(got)
	want := []string{"ab", "abc", "bc", "bcd", "cd"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestCharNGramsRunes(t *testing.T) {
	got := CharNGrams("日本語", 2, 2)
	want := []string{"日本", "本語"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestSkipGrams(t *testing.T) {
	got := SkipGrams("abcd", 2, 2, 1)
	sort.Strings(got)
	// contiguous: ab bc cd; one skip: ac bd
	want := []string{"ab", "ac", "bc", "bd", "cd"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestSkipGramsTotalBudget(t *testing.T) {
	got := SkipGrams("abcde", 3, 3, 1)
	sort.Strings(got)
	// abc bcd cde contiguous; abd acd bce bde with one skip
	want := []string{"abc", "abd", "acd", "bcd", "bce", "bde", "cde"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestSkipGramsZeroSkipMatchesCharNGrams(t *testing.T) {
	a := SkipGrams("hello", 1, 3, 0)
	b := CharNGrams("hello", 1, 3)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("SkipGrams with skip 0 should equal CharNGrams: %v vs %v", a, b)
	}
}

func TestDependencyKey(t *testing.T) {
	if got := DependencyKey("Dog", "nsubj", "Ran", true); got != "dog-nsubj-ran" {
		t.Errorf("Expected dog-nsubj-ran, got %s", got)
	}
	if got := DependencyKey("Dog", "nsubj", "Ran", false); got != "Dog-nsubj-Ran" {
		t.Errorf("Expected Dog-nsubj-Ran, got %s", got)
	}
	if got := DependencyKey("Dog", "NSUBJ", "Ran", true); got != "dog-NSUBJ-ran" {
		t.Errorf("Relation label must not be folded, got %s", got)
	}
}

func TestFilteredWordNGrams(t *testing.T) {
	drop := func(toks []string) bool {
		for _, tk := range toks {
			if tk != "of" {
				return false
			}
		}
		return true
	}
	got := FilteredWordNGrams([]string{"state", "of", "art"}, 1, 2, drop)
	want := []string{"state", "state_of", "of_art", "art"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}
