// Package stdlib provides the standard function library.
//
// Every function is declared once in the table below with its arity bounds
// and documentation metadata. Default returns the process-wide registry,
// built on first use and immutable afterwards.
package stdlib

import (
	"sync"

	"github.com/grauwen/utl-x-sub015/pkg/functions"
)

// Categories.
const (
	CategoryArray    = "Array"
	CategoryString   = "String"
	CategoryMath     = "Math"
	CategoryObject   = "Object"
	CategoryType     = "Type"
	CategoryDate     = "Date"
	CategoryEncoding = "Encoding"
)

const variadic = functions.Variadic

func def(category, name string, minArgs, maxArgs int, impl functions.Impl, description, example string) functions.Def {
	return functions.Def{
		Name:        name,
		Category:    category,
		MinArgs:     minArgs,
		MaxArgs:     maxArgs,
		Impl:        impl,
		Description: description,
		Example:     example,
	}
}

// Defs returns the definitions of the standard library.
func Defs() []functions.Def {
	return []functions.Def{
		// Array functions
		def(CategoryArray, "map", 2, 2, fnMap, "Applies a function to every element", `map([1, 2], x -> x * 2)`),
		def(CategoryArray, "filter", 2, 2, fnFilter, "Keeps the elements for which the predicate holds", `filter([1, 2, 3], x -> x > 1)`),
		def(CategoryArray, "reduce", 2, 3, fnReduce, "Folds an array with an accumulator function", `reduce([1, 2, 3], (acc, x) -> acc + x, 0)`),
		def(CategoryArray, "find", 2, 2, fnFind, "Returns the first element matching the predicate", `find(items, x -> x.id == 2)`),
		def(CategoryArray, "some", 2, 2, fnSome, "Tests whether any element matches", `some([1, 2], x -> x > 1)`),
		def(CategoryArray, "every", 2, 2, fnEvery, "Tests whether all elements match", `every([1, 2], x -> x > 0)`),
		def(CategoryArray, "count", 1, 2, fnCount, "Counts elements, optionally those matching a predicate", `count([1, 2, 3])`),
		def(CategoryArray, "sum", 1, 1, fnSum, "Sums numeric elements", `sum([1, 2, 3])`),
		def(CategoryArray, "avg", 1, 1, fnAvg, "Averages numeric elements", `avg([1, 2, 3])`),
		def(CategoryArray, "min", 1, 1, fnMin, "Returns the smallest element", `min([3, 1, 2])`),
		def(CategoryArray, "max", 1, 1, fnMax, "Returns the largest element", `max([3, 1, 2])`),
		def(CategoryArray, "first", 1, 1, fnFirst, "Returns the first element or null", `first([1, 2])`),
		def(CategoryArray, "last", 1, 1, fnLast, "Returns the last element or null", `last([1, 2])`),
		def(CategoryArray, "get", 2, 2, fnGet, "Returns the element at an index or null", `get([1, 2], -1)`),
		def(CategoryArray, "elementAt", 2, 2, fnGet, "Returns the element at an index or null", `elementAt([1, 2], 0)`),
		def(CategoryArray, "slice", 2, 3, fnSlice, "Returns the elements between two indexes", `slice([1, 2, 3], 1)`),
		def(CategoryArray, "take", 2, 2, fnTake, "Returns the first n elements", `take([1, 2, 3], 2)`),
		def(CategoryArray, "drop", 2, 2, fnDrop, "Skips the first n elements", `drop([1, 2, 3], 2)`),
		def(CategoryArray, "reverse", 1, 1, fnReverse, "Reverses an array or a string", `reverse([1, 2, 3])`),
		def(CategoryArray, "sort", 1, 2, fnSort, "Sorts an array, optionally with a comparator", `sort([3, 1, 2])`),
		def(CategoryArray, "sortBy", 2, 2, fnSortBy, "Sorts an array by a key function", `sortBy(people, p -> p.age)`),
		def(CategoryArray, "distinct", 1, 1, fnDistinct, "Removes duplicate elements", `distinct([1, 1, 2])`),
		def(CategoryArray, "flatten", 1, 2, fnFlatten, "Flattens nested arrays", `flatten([[1], [2, [3]]])`),
		def(CategoryArray, "zip", 1, variadic, fnZip, "Combines arrays element-wise", `zip([1, 2], ["a", "b"])`),
		def(CategoryArray, "range", 2, 3, fnRange, "Returns the integers from start up to, not including, end", `range(0, 5)`),
		def(CategoryArray, "groupBy", 2, 2, fnGroupBy, "Groups elements by a key function", `groupBy(items, x -> x.type)`),
		def(CategoryArray, "indexOf", 2, 2, fnIndexOf, "Returns the index of a value in an array or string, or -1", `indexOf([1, 2], 2)`),
		def(CategoryArray, "append", 2, variadic, fnAppend, "Appends values to an array", `append([1], 2, 3)`),
		def(CategoryArray, "insertAt", 3, 3, fnInsertAt, "Inserts a value at an index", `insertAt([1, 3], 1, 2)`),
		def(CategoryArray, "removeAt", 2, 2, fnRemoveAt, "Removes the element at an index", `removeAt([1, 2], 0)`),
		def(CategoryArray, "setAt", 3, 3, fnSetAt, "Replaces the element at an index", `setAt([1, 2], 0, 5)`),
		def(CategoryArray, "isEmpty", 1, 1, fnIsEmpty, "Tests whether a value is null or an empty string, array or object", `isEmpty([])`),
		def(CategoryArray, "contains", 2, 2, fnContains, "Tests whether an array contains a value or a string a substring", `contains("hello", "ell")`),
		def(CategoryArray, "size", 1, 1, fnSize, "Returns the length of a string, array or object", `size({a: 1})`),

		// String functions
		def(CategoryString, "upperCase", 1, 1, fnUpperCase, "Converts to upper case", `upperCase("abc")`),
		def(CategoryString, "lowerCase", 1, 1, fnLowerCase, "Converts to lower case", `lowerCase("ABC")`),
		def(CategoryString, "titleCase", 1, 1, fnTitleCase, "Capitalizes every word", `titleCase("hello world")`),
		def(CategoryString, "trim", 1, 1, fnTrim, "Removes leading and trailing whitespace", `trim("  a ")`),
		def(CategoryString, "substring", 2, 3, fnSubstring, "Returns the characters between two indexes", `substring("hello", 1, 3)`),
		def(CategoryString, "truncate", 2, 3, fnTruncate, "Shortens a string, appending a suffix when cut", `truncate("hello world", 5, "...")`),
		def(CategoryString, "split", 2, 2, fnSplit, "Splits a string by a separator", `split("a,b", ",")`),
		def(CategoryString, "join", 1, 2, fnJoin, "Joins array elements into a string", `join(["a", "b"], "-")`),
		def(CategoryString, "replace", 3, 3, fnReplace, "Replaces every occurrence of a substring", `replace("a-b", "-", "+")`),
		def(CategoryString, "startsWith", 2, 2, fnStartsWith, "Tests a string prefix", `startsWith("hello", "he")`),
		def(CategoryString, "endsWith", 2, 2, fnEndsWith, "Tests a string suffix", `endsWith("hello", "lo")`),
		def(CategoryString, "length", 1, 1, fnSize, "Returns the length of a string, array or object", `length("abc")`),
		def(CategoryString, "padLeft", 2, 3, fnPadLeft, "Pads a string on the left to a width", `padLeft("7", 3, "0")`),
		def(CategoryString, "padRight", 2, 3, fnPadRight, "Pads a string on the right to a width", `padRight("a", 3)`),
		def(CategoryString, "normalize", 1, 2, fnNormalize, "Applies Unicode normalization (NFC, NFD, NFKC, NFKD)", `normalize("é")`),
		def(CategoryString, "matches", 2, 2, fnMatches, "Tests a string against a regular expression", `matches("abc", "^a")`),

		// Math functions
		def(CategoryMath, "abs", 1, 1, fnAbs, "Absolute value", `abs(-3)`),
		def(CategoryMath, "round", 1, 2, fnRound, "Rounds half away from zero, optionally to a number of decimals", `round(2.345, 2)`),
		def(CategoryMath, "floor", 1, 1, fnFloor, "Rounds down", `floor(2.7)`),
		def(CategoryMath, "ceil", 1, 1, fnCeil, "Rounds up", `ceil(2.1)`),
		def(CategoryMath, "pow", 2, 2, fnPow, "Raises a number to a power", `pow(2, 10)`),
		def(CategoryMath, "sqrt", 1, 1, fnSqrt, "Square root", `sqrt(16)`),
		def(CategoryMath, "toNumber", 1, 1, fnToNumber, "Converts a string or boolean to a number", `toNumber("42")`),
		def(CategoryMath, "formatNumber", 1, 3, fnFormatNumber, "Formats a number with grouping for a locale", `formatNumber(1234.5, 2, "en")`),

		// Object functions
		def(CategoryObject, "keys", 1, 1, fnKeys, "Returns the keys of an object", `keys({a: 1})`),
		def(CategoryObject, "values", 1, 1, fnValues, "Returns the values of an object", `values({a: 1})`),
		def(CategoryObject, "entries", 1, 1, fnEntries, "Returns the key/value pairs of an object", `entries({a: 1})`),
		def(CategoryObject, "fromEntries", 1, 1, fnFromEntries, "Builds an object from key/value pairs", `fromEntries([{key: "a", value: 1}])`),
		def(CategoryObject, "merge", 1, variadic, fnMerge, "Merges objects, later keys winning", `merge({a: 1}, {b: 2})`),
		def(CategoryObject, "pick", 2, 2, fnPick, "Keeps the given keys", `pick({a: 1, b: 2}, ["a"])`),
		def(CategoryObject, "omit", 2, 2, fnOmit, "Removes the given keys", `omit({a: 1, b: 2}, ["a"])`),
		def(CategoryObject, "hasKey", 2, 2, fnHasKey, "Tests whether an object has a key", `hasKey({a: 1}, "a")`),
		def(CategoryObject, "setPath", 3, 3, fnSetPath, "Returns a copy with a dotted path set", `setPath({}, "a.b", 1)`),
		def(CategoryObject, "getPath", 2, 3, fnGetPath, "Reads a dotted path, with an optional default", `getPath(order, "customer.name")`),

		// Type functions
		def(CategoryType, "typeOf", 1, 1, fnTypeOf, "Returns the type name of a value", `typeOf(42)`),
		def(CategoryType, "isString", 1, 1, isKind(isString), "Tests for a string", `isString("a")`),
		def(CategoryType, "isNumber", 1, 1, isKind(isNumber), "Tests for a number", `isNumber(1.5)`),
		def(CategoryType, "isArray", 1, 1, isKind(isArray), "Tests for an array", `isArray([])`),
		def(CategoryType, "isObject", 1, 1, isKind(isObject), "Tests for an object", `isObject({})`),
		def(CategoryType, "isNull", 1, 1, isKind(isNull), "Tests for null", `isNull(null)`),
		def(CategoryType, "toString", 1, 1, fnToString, "Renders a value as a string", `toString(42)`),
		def(CategoryType, "toBoolean", 1, 1, fnToBoolean, "Converts a value to a boolean", `toBoolean("true")`),
		def(CategoryType, "error", 1, 1, fnError, "Raises a user error with a message", `error("invalid order")`),

		// Date functions
		def(CategoryDate, "now", 0, 0, fnNow, "Returns the current date-time", `now()`),
		def(CategoryDate, "parseDate", 1, 2, fnParseDate, "Parses a date or date-time string, optionally with a layout", `parseDate("2024-01-15")`),
		def(CategoryDate, "formatDate", 1, 2, fnFormatDate, "Formats a date with a pattern such as yyyy-MM-dd", `formatDate(parseDate("2024-01-15"), "dd/MM/yyyy")`),
		def(CategoryDate, "addDays", 2, 2, fnAddDays, "Adds days to a date", `addDays(parseDate("2024-01-15"), 1)`),
		def(CategoryDate, "diffDays", 2, 2, fnDiffDays, "Whole days from the first date to the second", `diffDays(parseDate("2024-01-01"), parseDate("2024-01-15"))`),

		// Encoding functions
		def(CategoryEncoding, "base64Encode", 1, 1, fnBase64Encode, "Encodes a string or binary as base64", `base64Encode("hi")`),
		def(CategoryEncoding, "base64Decode", 1, 1, fnBase64Decode, "Decodes base64 to a string", `base64Decode("aGk=")`),
		def(CategoryEncoding, "urlEncode", 1, 1, fnURLEncode, "Percent-encodes a string for a query component", `urlEncode("a b")`),
		def(CategoryEncoding, "urlDecode", 1, 1, fnURLDecode, "Decodes a percent-encoded string", `urlDecode("a%20b")`),
		def(CategoryEncoding, "toJson", 1, 2, fnToJSON, "Serializes a value as JSON, optionally indented", `toJson({a: 1})`),
		def(CategoryEncoding, "parseJson", 1, 1, fnParseJSON, "Parses a JSON string", `parseJson("{\"a\": 1}")`),
	}
}

// Register adds the standard library to b.
func Register(b *functions.Builder) error {
	return b.AddAll(Defs()...)
}

var (
	defaultRegistry     *functions.Registry
	defaultRegistryOnce sync.Once
)

// Default returns the process-wide standard library registry.
func Default() *functions.Registry {
	defaultRegistryOnce.Do(func() {
		b := functions.NewBuilder()
		if err := Register(b); err != nil {
			panic("stdlib: " + err.Error())
		}
		defaultRegistry = b.Build()
	})
	return defaultRegistry
}
