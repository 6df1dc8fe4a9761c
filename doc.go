/*
Package lsmpage contains the page codecs of sorted, immutable LSM-tree runs
of RDF triples and generic key/value pairs, together with a simple run file
container around them.

Data Structure Documentation

Page

A page is a fixed-size byte buffer holding a contiguous slice of a run's
entries. It has no header; the number of used bytes and the codec are
known to the owner of the page. The first entry of a page is stored raw,
every subsequent entry relative to its predecessor.

Bit-vector bytes

Flags and integer lengths are packed LSB-first into bit-vector bytes,
which are interleaved with the payload: whenever a bit-vector byte is
exhausted, the next bit claims the next free payload byte.

Triple entry

    +---------------+-----------------+---------------------------+----------------------------+
    | tombstone bit | flags (0-2 bit) | length-1 (2 bit) per int  | ints (1-4 bytes each, LE)  |
    +---------------+-----------------+---------------------------+----------------------------+

The flags choose between three delta shapes, based on the collation order
of the run (primary, secondary, tertiary position):

    flags | stored ints
    ------+---------------------------------------------------------------
    -     | primary, secondary, tertiary (raw; first entry of a page)
    1     | tertiary - prev tertiary
    01    | secondary - prev secondary, tertiary
    00    | primary - prev primary, secondary, tertiary

Differences wrap around, so unsorted input is stored correctly, only less
compactly. Removed entries store no value, the value is the key.

Key/value entry

    +----------------------------------+------------------------+----------------------------+
    | marker byte (entries 0, 8, ...)  | key (raw or delta)     | value (omitted if removed) |
    +----------------------------------+------------------------+----------------------------+

Bit i%8 of the marker byte preceding entry i is set when the entry is
removed. Keys and values are written by a Serializer.

Summary entry

    +-----------------------------------+------------------+
    | page number (uvarint, first only) | key (raw/delta)  |
    +-----------------------------------+------------------+

Subsequent entries implicitly refer to the next page.

Run

A run file contains a series of page frames followed by a frame index and
a footer.

    Run layout:
    +---------+---------+-----------+----------------+-------------+--------+
    | frame 0 |   ...   | frame n-1 | summary frames | frame index | footer |
    +---------+---------+-----------+----------------+-------------+--------+

    Frame:
    +---------------------------------+---------------------------+--------------------+
    | page payload (plain or snappy)  | compression type (1-byte) | xxhash64 (8 bytes) |
    +---------------------------------+---------------------------+--------------------+

    Frame index:
    +---------------------------+-----------------------------------+-------+
    | frame offset 0 (uvarint)  | frame offset 1 (uvarint, delta)   |  ...  |
    +---------------------------+-----------------------------------+-------+

    Footer:
    +-------------------+-------------------+------------------+---------------------+
    | index offset (8)  | entry count (8)   | data pages (4)   | summary pages (4)   |
    +-------------------+-------------------+------------------+---------------------+
    | first page (4)    | entries/page (4)  | descriptor (2)   | magic (8)           |
    +-------------------+-------------------+------------------+---------------------+
*/
package lsmpage
